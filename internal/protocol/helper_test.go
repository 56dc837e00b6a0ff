package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_EncodeDecode(t *testing.T) {
	t.Parallel()

	msg := MustNewMessage(MsgNewMessage, ChatMessage{
		ID:     7,
		Sender: Participant{Name: "Ann", Emoji: "🐱"},
		Text:   "hi",
	})

	data, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, MsgNewMessage, decoded.Type)

	payload, err := ParsePayload[ChatMessage](decoded)
	require.NoError(t, err)
	assert.Equal(t, int64(7), payload.ID)
	assert.Equal(t, "Ann", payload.Sender.Name)
	assert.Equal(t, "hi", payload.Text)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestParsePayload_Malformed(t *testing.T) {
	t.Parallel()

	msg := &Message{Type: MsgJoin, Payload: []byte(`{"name":123}`)}
	_, err := ParsePayload[JoinPayload](msg)
	assert.Error(t, err)
}

func TestParticipant_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, Participant{Name: "Ann", Emoji: "🐱"}.Valid())
	assert.False(t, Participant{Name: "", Emoji: "🐱"}.Valid())
	assert.False(t, Participant{Name: "  ", Emoji: "🐱"}.Valid())
	assert.False(t, Participant{Name: "Ann"}.Valid())
}
