package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emojimon/world-relay/internal/config"
	"github.com/emojimon/world-relay/internal/protocol"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, string) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Shutdown)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return srv, wsURL
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg *protocol.Message) {
	t.Helper()

	data, err := msg.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readMsg(t *testing.T, conn *websocket.Conn) *protocol.Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	return msg
}

// TestServer_WorldScenario 跑通完整的入世/聊天/离开脚本
func TestServer_WorldScenario(t *testing.T) {
	t.Parallel()

	_, wsURL := newTestServer(t, nil)

	ann := protocol.Participant{Name: "Ann", Emoji: "🐱"}
	bob := protocol.Participant{Name: "Bob", Emoji: "🐶"}

	// X 以 Ann 身份加入，应只收到快照
	x := dial(t, wsURL)
	send(t, x, protocol.MustNewMessage(protocol.MsgJoin, ann))

	msg := readMsg(t, x)
	require.Equal(t, protocol.MsgInitData, msg.Type)
	snapshot, err := protocol.ParsePayload[protocol.InitDataPayload](msg)
	require.NoError(t, err)
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, int64(1), snapshot.Messages[0].ID)
	assert.Equal(t, "ระบบ", snapshot.Messages[0].Sender.Name)
	assert.Equal(t, "ยินดีต้อนรับสู่ EmojiMon World!", snapshot.Messages[0].Text)
	assert.Equal(t, []protocol.Participant{ann}, snapshot.OnlineUsers)

	// Y 以 Bob 身份加入
	y := dial(t, wsURL)
	send(t, y, protocol.MustNewMessage(protocol.MsgJoin, bob))

	msg = readMsg(t, y)
	require.Equal(t, protocol.MsgInitData, msg.Type)
	snapshot, err = protocol.ParsePayload[protocol.InitDataPayload](msg)
	require.NoError(t, err)
	assert.Len(t, snapshot.Messages, 1)
	assert.ElementsMatch(t, []protocol.Participant{ann, bob}, snapshot.OnlineUsers)

	// X 收到 Bob 的 user_joined
	msg = readMsg(t, x)
	require.Equal(t, protocol.MsgUserJoined, msg.Type)
	joined, err := protocol.ParsePayload[protocol.Participant](msg)
	require.NoError(t, err)
	assert.Equal(t, bob, *joined)

	// X 发言，双方收到完全相同的广播
	send(t, x, protocol.MustNewMessage(protocol.MsgSendMessage, protocol.SendMessagePayload{Sender: ann, Text: "hi"}))

	for _, conn := range []*websocket.Conn{x, y} {
		msg = readMsg(t, conn)
		require.Equal(t, protocol.MsgNewMessage, msg.Type)
		chat, err := protocol.ParsePayload[protocol.ChatMessage](msg)
		require.NoError(t, err)
		assert.Equal(t, int64(2), chat.ID)
		assert.Equal(t, ann, chat.Sender)
		assert.Equal(t, "hi", chat.Text)
	}

	// 未加入就断开的连接不产生任何广播
	z := dial(t, wsURL)
	z.Close()

	// Y 断开，X 收到 user_left（且中间没有多余消息）
	y.Close()
	msg = readMsg(t, x)
	require.Equal(t, protocol.MsgUserLeft, msg.Type)
	left, err := protocol.ParsePayload[protocol.Participant](msg)
	require.NoError(t, err)
	assert.Equal(t, bob, *left)
}

// TestServer_SnapshotContainsOnlyPriorMessages 快照在 join 时同步截取
func TestServer_SnapshotContainsOnlyPriorMessages(t *testing.T) {
	t.Parallel()

	_, wsURL := newTestServer(t, nil)
	ann := protocol.Participant{Name: "Ann", Emoji: "🐱"}

	x := dial(t, wsURL)
	send(t, x, protocol.MustNewMessage(protocol.MsgJoin, ann))
	require.Equal(t, protocol.MsgInitData, readMsg(t, x).Type)

	send(t, x, protocol.MustNewMessage(protocol.MsgSendMessage, protocol.SendMessagePayload{Text: "before"}))
	require.Equal(t, protocol.MsgNewMessage, readMsg(t, x).Type)

	y := dial(t, wsURL)
	send(t, y, protocol.MustNewMessage(protocol.MsgJoin, protocol.Participant{Name: "Bob", Emoji: "🐶"}))

	msg := readMsg(t, y)
	require.Equal(t, protocol.MsgInitData, msg.Type)
	snapshot, err := protocol.ParsePayload[protocol.InitDataPayload](msg)
	require.NoError(t, err)

	// 欢迎语 + "before"，仅此而已
	require.Len(t, snapshot.Messages, 2)
	assert.Equal(t, "before", snapshot.Messages[1].Text)
}

func TestServer_GetStats(t *testing.T) {
	t.Parallel()

	_, wsURL := newTestServer(t, nil)
	ann := protocol.Participant{Name: "Ann", Emoji: "🐱"}

	x := dial(t, wsURL)
	send(t, x, protocol.MustNewMessage(protocol.MsgJoin, ann))
	require.Equal(t, protocol.MsgInitData, readMsg(t, x).Type)

	send(t, x, protocol.MustNewMessage(protocol.MsgSendMessage, protocol.SendMessagePayload{Text: "hi"}))
	require.Equal(t, protocol.MsgNewMessage, readMsg(t, x).Type)

	// 统计异步落库，轮询到位
	var stats *protocol.StatsPayload
	require.Eventually(t, func() bool {
		send(t, x, &protocol.Message{Type: protocol.MsgGetStats})
		msg := readMsg(t, x)
		if msg.Type != protocol.MsgStats {
			return false
		}
		payload, err := protocol.ParsePayload[protocol.StatsPayload](msg)
		if err != nil {
			return false
		}
		stats = payload
		return stats.TotalMessages == 1 && stats.TotalJoins == 1
	}, 3*time.Second, 100*time.Millisecond)

	require.Len(t, stats.TopChatters, 1)
	assert.Equal(t, "Ann", stats.TopChatters[0].Name)
	assert.GreaterOrEqual(t, stats.PeakOnline, int64(1))
}

func TestServer_MaxConnections(t *testing.T) {
	t.Parallel()

	_, wsURL := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.MaxConnections = 1
	})

	dial(t, wsURL)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
