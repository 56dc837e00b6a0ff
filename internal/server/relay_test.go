package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emojimon/world-relay/internal/protocol"
	"github.com/emojimon/world-relay/internal/world"
)

// stubConn 不走真实 WebSocket 的连接替身，按序记录收到的消息
type stubConn struct {
	id       string
	messages []*protocol.Message
}

func (s *stubConn) GetID() string                     { return s.id }
func (s *stubConn) SendMessage(msg *protocol.Message) { s.messages = append(s.messages, msg) }

func (s *stubConn) received(t protocol.MessageType) int {
	n := 0
	for _, m := range s.messages {
		if m.Type == t {
			n++
		}
	}
	return n
}

func newTestRelay() *Relay {
	msgLog := world.NewLog(0)
	msgLog.Seed(protocol.Participant{Name: "ระบบ", Emoji: "🤖"}, "ยินดีต้อนรับสู่ EmojiMon World!")
	return NewRelay(world.NewRegistry(), msgLog, nil)
}

func mustPayload[T any](t *testing.T, msg *protocol.Message) *T {
	t.Helper()
	payload, err := protocol.ParsePayload[T](msg)
	require.NoError(t, err)
	return payload
}

func TestRelay_JoinSendsSnapshotToJoinerOnly(t *testing.T) {
	t.Parallel()

	relay := newTestRelay()
	x := &stubConn{id: "x"}

	relay.Join(x, protocol.Participant{Name: "Ann", Emoji: "🐱"})

	require.Len(t, x.messages, 1)
	assert.Equal(t, protocol.MsgInitData, x.messages[0].Type)

	snapshot := mustPayload[protocol.InitDataPayload](t, x.messages[0])
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, int64(1), snapshot.Messages[0].ID)
	assert.Equal(t, "ยินดีต้อนรับสู่ EmojiMon World!", snapshot.Messages[0].Text)
	assert.Equal(t, []protocol.Participant{{Name: "Ann", Emoji: "🐱"}}, snapshot.OnlineUsers)

	// 加入者绝不会收到自己的 user_joined
	assert.Zero(t, x.received(protocol.MsgUserJoined))
}

func TestRelay_SecondJoinBroadcastsToOthers(t *testing.T) {
	t.Parallel()

	relay := newTestRelay()
	x := &stubConn{id: "x"}
	y := &stubConn{id: "y"}

	relay.Join(x, protocol.Participant{Name: "Ann", Emoji: "🐱"})
	relay.Join(y, protocol.Participant{Name: "Bob", Emoji: "🐶"})

	// X 恰好收到一次 user_joined
	require.Equal(t, 1, x.received(protocol.MsgUserJoined))
	joined := mustPayload[protocol.Participant](t, x.messages[len(x.messages)-1])
	assert.Equal(t, "Bob", joined.Name)

	// Y 的快照里有欢迎消息和 X 的身份
	snapshot := mustPayload[protocol.InitDataPayload](t, y.messages[0])
	assert.Len(t, snapshot.Messages, 1)
	assert.Contains(t, snapshot.OnlineUsers, protocol.Participant{Name: "Ann", Emoji: "🐱"})
	assert.Contains(t, snapshot.OnlineUsers, protocol.Participant{Name: "Bob", Emoji: "🐶"})
}

func TestRelay_SendBroadcastsToAllIncludingSender(t *testing.T) {
	t.Parallel()

	relay := newTestRelay()
	x := &stubConn{id: "x"}
	y := &stubConn{id: "y"}
	relay.Join(x, protocol.Participant{Name: "Ann", Emoji: "🐱"})
	relay.Join(y, protocol.Participant{Name: "Bob", Emoji: "🐶"})

	relay.Send(x, "hi")

	require.Equal(t, 1, x.received(protocol.MsgNewMessage))
	require.Equal(t, 1, y.received(protocol.MsgNewMessage))

	fromX := mustPayload[protocol.ChatMessage](t, x.messages[len(x.messages)-1])
	fromY := mustPayload[protocol.ChatMessage](t, y.messages[len(y.messages)-1])
	assert.Equal(t, fromX, fromY)
	assert.Equal(t, "hi", fromX.Text)
	assert.Equal(t, "Ann", fromX.Sender.Name)
	assert.Equal(t, int64(2), fromX.ID) // 欢迎消息占了 1
}

func TestRelay_SendWithoutJoinIgnored(t *testing.T) {
	t.Parallel()

	relay := newTestRelay()
	x := &stubConn{id: "x"}
	ghost := &stubConn{id: "ghost"}
	relay.Join(x, protocol.Participant{Name: "Ann", Emoji: "🐱"})

	relay.Send(ghost, "should vanish")

	assert.Zero(t, x.received(protocol.MsgNewMessage))
	assert.Equal(t, 1, relay.log.Len())
}

func TestRelay_LeaveBroadcastsUserLeft(t *testing.T) {
	t.Parallel()

	relay := newTestRelay()
	x := &stubConn{id: "x"}
	y := &stubConn{id: "y"}
	relay.Join(x, protocol.Participant{Name: "Ann", Emoji: "🐱"})
	relay.Join(y, protocol.Participant{Name: "Bob", Emoji: "🐶"})

	relay.Leave(y)

	require.Equal(t, 1, x.received(protocol.MsgUserLeft))
	left := mustPayload[protocol.Participant](t, x.messages[len(x.messages)-1])
	assert.Equal(t, protocol.Participant{Name: "Bob", Emoji: "🐶"}, *left)

	// 在线表不再包含 Bob
	assert.Equal(t, 1, relay.OnlineCount())
	// 离开者自己不会收到 user_left
	assert.Zero(t, y.received(protocol.MsgUserLeft))
}

func TestRelay_LeaveWithoutJoinIsSilent(t *testing.T) {
	t.Parallel()

	relay := newTestRelay()
	x := &stubConn{id: "x"}
	ghost := &stubConn{id: "ghost"}
	relay.Join(x, protocol.Participant{Name: "Ann", Emoji: "🐱"})
	before := len(x.messages)

	relay.Leave(ghost)

	assert.Len(t, x.messages, before)
	assert.Equal(t, 1, relay.OnlineCount())
	assert.Equal(t, 1, relay.log.Len())
}

func TestRelay_RejoinSameConnectionOverwrites(t *testing.T) {
	t.Parallel()

	relay := newTestRelay()
	x := &stubConn{id: "x"}
	y := &stubConn{id: "y"}
	relay.Join(y, protocol.Participant{Name: "Bob", Emoji: "🐶"})

	relay.Join(x, protocol.Participant{Name: "Ann", Emoji: "🐱"})
	relay.Join(x, protocol.Participant{Name: "Annie", Emoji: "🐰"})

	assert.Equal(t, 2, relay.OnlineCount())

	relay.Send(x, "renamed")
	latest := mustPayload[protocol.ChatMessage](t, y.messages[len(y.messages)-1])
	assert.Equal(t, "Annie", latest.Sender.Name)
}

func TestRelay_MessageIDsStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	relay := newTestRelay()
	x := &stubConn{id: "x"}
	relay.Join(x, protocol.Participant{Name: "Ann", Emoji: "🐱"})

	relay.Send(x, "one")
	relay.Send(x, "two")
	relay.Send(x, "three")

	var last int64
	for _, m := range x.messages {
		if m.Type != protocol.MsgNewMessage {
			continue
		}
		chat := mustPayload[protocol.ChatMessage](t, m)
		assert.Greater(t, chat.ID, last)
		last = chat.ID
	}
	assert.Equal(t, int64(4), last)
}
