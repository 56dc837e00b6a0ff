package world

import (
	"sync"

	"github.com/emojimon/world-relay/internal/protocol"
)

// Log 当前中继进程生命周期内的聊天消息记录。
// ID 由内部计数器分配，进程内严格递增，消息写入后不再修改。
// limit > 0 时只保留最近 limit 条，旧消息被淘汰。
type Log struct {
	mu       sync.RWMutex
	messages []protocol.ChatMessage
	nextID   int64
	limit    int
}

// NewLog 创建消息记录，limit <= 0 表示不设上限
func NewLog(limit int) *Log {
	return &Log{
		nextID: 1,
		limit:  limit,
	}
}

// Seed 追加一条系统消息，通常是进程启动时的欢迎语
func (l *Log) Seed(sender protocol.Participant, text string) protocol.ChatMessage {
	return l.Append(sender, text)
}

// Append 记录一条新消息并分配 ID，返回存储后的值
func (l *Log) Append(sender protocol.Participant, text string) protocol.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := protocol.ChatMessage{
		ID:     l.nextID,
		Sender: sender,
		Text:   text,
	}
	l.nextID++

	l.messages = append(l.messages, msg)
	if l.limit > 0 && len(l.messages) > l.limit {
		// 淘汰最旧的消息，保留尾部
		l.messages = l.messages[len(l.messages)-l.limit:]
	}
	return msg
}

// All 按写入顺序返回当前保留的全部消息（副本）
func (l *Log) All() []protocol.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]protocol.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len 当前保留的消息条数
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
