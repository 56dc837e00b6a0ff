package protocol

import "strings"

// Participant 世界中的一个伙伴身份（名字 + 表情）
// 由游戏侧的宠物/档案逻辑在加入前生成，连接期间不变
type Participant struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// Valid 校验身份字段是否完整
func (p Participant) Valid() bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Emoji) != ""
}

// ChatMessage 一条聊天消息，ID 由中继分配，单进程内严格递增
type ChatMessage struct {
	ID     int64       `json:"id"`
	Sender Participant `json:"sender"`
	Text   string      `json:"text"`
}

// --- 客户端请求 Payloads ---

// JoinPayload 加入世界请求，即伙伴身份本身
type JoinPayload = Participant

// SendMessagePayload 发送聊天消息请求
type SendMessagePayload struct {
	Sender Participant `json:"sender"`
	Text   string      `json:"text"`
}

// --- 中继响应 Payloads ---

// InitDataPayload 入世快照：当前全部消息 + 在线伙伴
type InitDataPayload struct {
	Messages    []ChatMessage `json:"messages"`
	OnlineUsers []Participant `json:"onlineUsers"`
}

// ChatterStat 单个伙伴的发言统计
type ChatterStat struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// StatsPayload 世界活跃统计
type StatsPayload struct {
	TotalMessages int64         `json:"total_messages"`
	TotalJoins    int64         `json:"total_joins"`
	PeakOnline    int64         `json:"peak_online"`
	TopChatters   []ChatterStat `json:"top_chatters,omitempty"`
}
