// Package world 维护中继进程内的共享状态：在线伙伴表与聊天消息记录。
// 两者都只存在于内存中，进程重启即清空。
package world

import (
	"sync"

	"github.com/emojimon/world-relay/internal/protocol"
)

// Registry 在线伙伴表，按连接 ID 索引。
// 同名伙伴可以同时在线（两个标签页用同一个昵称是合法的），
// 按名字去重是展示层的事。
type Registry struct {
	mu      sync.RWMutex
	entries map[string]protocol.Participant
}

// NewRegistry 创建空的在线表
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]protocol.Participant),
	}
}

// Register 登记连接上的伙伴身份，同连接重复登记视为换身份，直接覆盖
func (r *Registry) Register(connID string, p protocol.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[connID] = p
}

// Unregister 注销连接，不存在时为 no-op（容忍重复断开）
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, connID)
}

// Get 返回连接上登记的身份
func (r *Registry) Get(connID string) (protocol.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[connID]
	return p, ok
}

// Snapshot 返回当前全部在线伙伴，顺序不保证
func (r *Registry) Snapshot() []protocol.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]protocol.Participant, 0, len(r.entries))
	for _, p := range r.entries {
		list = append(list, p)
	}
	return list
}

// Count 当前在线连接数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
