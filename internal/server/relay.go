package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/emojimon/world-relay/internal/protocol"
	"github.com/emojimon/world-relay/internal/world"
)

// ClientConn 中继需要的连接能力，便于不起真实 WebSocket 做测试
type ClientConn interface {
	GetID() string
	SendMessage(msg *protocol.Message)
}

// StatsRecorder 活跃统计的落库接口，所有调用都是尽力而为
type StatsRecorder interface {
	RecordMessage(ctx context.Context, name string) error
	RecordJoin(ctx context.Context, name string) error
	RecordPeakOnline(ctx context.Context, online int64) error
	Summary(ctx context.Context, topN int) (*protocol.StatsPayload, error)
}

const statsTimeout = 2 * time.Second

// Relay 世界中继：独占持有在线表和消息记录。
// 每个 join/send/leave 事件在同一把锁内处理到底（含广播入队），
// 保证所有客户端观察到同一个全局顺序。
type Relay struct {
	registry *world.Registry
	log      *world.Log
	stats    StatsRecorder // 可为 nil

	mu    sync.Mutex
	conns map[string]ClientConn
}

// NewRelay 创建中继，stats 传 nil 表示不记录统计
func NewRelay(registry *world.Registry, msgLog *world.Log, stats StatsRecorder) *Relay {
	return &Relay{
		registry: registry,
		log:      msgLog,
		stats:    stats,
		conns:    make(map[string]ClientConn),
	}
}

// Join 处理加入事件：登记身份，给加入者回快照，向其他人广播 user_joined。
// 同一连接重复 join 视为换身份，直接覆盖登记
func (r *Relay) Join(c ClientConn, p protocol.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := c.GetID()
	r.conns[connID] = c
	r.registry.Register(connID, p)

	// 快照在 join 处理内同步取得，之后的消息一定通过广播到达
	c.SendMessage(protocol.MustNewMessage(protocol.MsgInitData, protocol.InitDataPayload{
		Messages:    r.log.All(),
		OnlineUsers: r.registry.Snapshot(),
	}))

	joined := protocol.MustNewMessage(protocol.MsgUserJoined, p)
	for id, conn := range r.conns {
		if id != connID {
			conn.SendMessage(joined)
		}
	}

	log.Printf("✅ 伙伴 %s %s 加入世界 (连接 %s, 在线 %d)", p.Emoji, p.Name, connID, r.registry.Count())
	r.recordJoin(p.Name, int64(r.registry.Count()))
}

// Send 处理聊天事件：记录消息并广播给所有已加入的连接（含发送者）。
// 未加入的连接发来的消息直接忽略，没有身份可归属
func (r *Relay) Send(c ClientConn, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender, ok := r.registry.Get(c.GetID())
	if !ok {
		log.Printf("⚠️ 连接 %s 未加入就发消息，已忽略", c.GetID())
		return
	}

	msg := r.log.Append(sender, text)
	broadcast := protocol.MustNewMessage(protocol.MsgNewMessage, msg)
	for _, conn := range r.conns {
		conn.SendMessage(broadcast)
	}

	r.recordMessage(sender.Name)
}

// Leave 处理断开事件：注销并向剩余连接广播 user_left。
// 从未加入过的连接断开时不产生任何广播和状态变化
func (r *Relay) Leave(c ClientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := c.GetID()
	p, joined := r.registry.Get(connID)
	delete(r.conns, connID)
	if !joined {
		return
	}

	r.registry.Unregister(connID)

	left := protocol.MustNewMessage(protocol.MsgUserLeft, p)
	for _, conn := range r.conns {
		conn.SendMessage(left)
	}

	log.Printf("❌ 伙伴 %s %s 离开世界 (在线 %d)", p.Emoji, p.Name, r.registry.Count())
}

// OnlineCount 当前已加入的连接数
func (r *Relay) OnlineCount() int {
	return r.registry.Count()
}

// Stats 查询活跃统计，可能有 Redis IO，不持中继锁
func (r *Relay) Stats(ctx context.Context, topN int) (*protocol.StatsPayload, error) {
	if r.stats == nil {
		return &protocol.StatsPayload{}, nil
	}
	return r.stats.Summary(ctx, topN)
}

// recordJoin 异步落库加入统计，失败只记日志
func (r *Relay) recordJoin(name string, online int64) {
	if r.stats == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
		defer cancel()
		if err := r.stats.RecordJoin(ctx, name); err != nil {
			log.Printf("记录加入统计失败: %v", err)
		}
		if err := r.stats.RecordPeakOnline(ctx, online); err != nil {
			log.Printf("记录在线峰值失败: %v", err)
		}
	}()
}

// recordMessage 异步落库发言统计，失败只记日志
func (r *Relay) recordMessage(name string) {
	if r.stats == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
		defer cancel()
		if err := r.stats.RecordMessage(ctx, name); err != nil {
			log.Printf("记录发言统计失败: %v", err)
		}
	}()
}
