package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 中继 消息类型
const (
	MsgJoin        MessageType = "join"        // 加入世界
	MsgSendMessage MessageType = "sendMessage" // 发送聊天消息
	MsgGetStats    MessageType = "get_stats"   // 获取活跃统计
)

// 中继 → 客户端 消息类型
const (
	MsgInitData   MessageType = "init_data"   // 入世快照（仅发给加入者）
	MsgUserJoined MessageType = "user_joined" // 有新伙伴加入
	MsgNewMessage MessageType = "newMessage"  // 新聊天消息
	MsgUserLeft   MessageType = "user_left"   // 伙伴离开
	MsgStats      MessageType = "stats"       // 活跃统计结果
)

// Encode 将消息编码为 JSON 字节
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode 从 JSON 字节解码消息
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
