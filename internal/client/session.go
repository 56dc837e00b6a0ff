package client

import (
	"log"
	"sync"

	"github.com/emojimon/world-relay/internal/protocol"
)

// Session 一个标签页（进程）的世界会话：持有传输客户端，
// 维护"我是谁 / 谁在线 / 说过什么"的本地镜像。
// 镜像只由服务端事件驱动，断线时原样保留用于继续展示。
type Session struct {
	client *Client

	mu          sync.RWMutex
	connected   bool
	currentUser *protocol.Participant
	onlineUsers []protocol.Participant
	messages    []protocol.ChatMessage
	lastStats   *protocol.StatsPayload

	updates chan struct{}
}

// NewSession 创建世界会话
func NewSession(serverURL string) *Session {
	s := &Session{
		client:  NewClient(serverURL),
		updates: make(chan struct{}, 1),
	}

	s.client.OnMessage = s.handleMessage
	s.client.OnConnect = s.handleConnect
	s.client.OnDisconnect = s.handleDisconnect

	return s
}

// Client 暴露底层传输客户端（回调挂接用）
func (s *Session) Client() *Client {
	return s.client
}

// Connect 建立连接
func (s *Session) Connect() error {
	return s.client.Connect()
}

// Close 结束会话
func (s *Session) Close() {
	s.client.Close()
}

// Updates 状态变化通知，容量 1，多次变化会合并
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// JoinWorld 以指定身份加入世界。currentUser 立即生效（乐观更新），
// 服务端没有确认回执
func (s *Session) JoinWorld(p protocol.Participant) error {
	s.mu.Lock()
	s.currentUser = &p
	s.mu.Unlock()
	s.notify()

	return s.client.SendMessage(protocol.MustNewMessage(protocol.MsgJoin, p))
}

// SendMessage 发送聊天消息，未加入时为 no-op
func (s *Session) SendMessage(text string) error {
	s.mu.RLock()
	user := s.currentUser
	s.mu.RUnlock()

	if user == nil {
		log.Printf("⚠️ 尚未加入世界，消息未发送")
		return nil
	}

	return s.client.SendMessage(protocol.MustNewMessage(protocol.MsgSendMessage, protocol.SendMessagePayload{
		Sender: *user,
		Text:   text,
	}))
}

// RequestStats 请求活跃统计，结果通过镜像的 Stats() 读取
func (s *Session) RequestStats() error {
	return s.client.SendMessage(&protocol.Message{Type: protocol.MsgGetStats})
}

// --- 镜像读取 ---

// Connected 当前是否有活动连接
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// CurrentUser 本会话的身份，未加入时为 nil
func (s *Session) CurrentUser() *protocol.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentUser == nil {
		return nil
	}
	user := *s.currentUser
	return &user
}

// OnlineUsers 在线伙伴列表（按名字去重后的展示视图）
func (s *Session) OnlineUsers() []protocol.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Participant, len(s.onlineUsers))
	copy(out, s.onlineUsers)
	return out
}

// Messages 迄今收到的聊天消息，服务端顺序
func (s *Session) Messages() []protocol.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Stats 最近一次收到的活跃统计，没有请求过为 nil
func (s *Session) Stats() *protocol.StatsPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStats
}

// --- 事件应用 ---

// handleConnect 连接（重连）建立：已有身份时自动重新加入
func (s *Session) handleConnect() {
	s.mu.Lock()
	s.connected = true
	user := s.currentUser
	s.mu.Unlock()
	s.notify()

	if user != nil {
		if err := s.client.SendMessage(protocol.MustNewMessage(protocol.MsgJoin, *user)); err != nil {
			log.Printf("重新加入失败: %v", err)
		}
	}
}

// handleDisconnect 断线：只翻转连接标记，镜像保留最后已知状态
func (s *Session) handleDisconnect() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.notify()
}

// handleMessage 把服务端事件应用到镜像
func (s *Session) handleMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgInitData:
		payload, err := protocol.ParsePayload[protocol.InitDataPayload](msg)
		if err != nil {
			log.Printf("init_data 解析失败: %v", err)
			return
		}
		s.applyInitData(payload)

	case protocol.MsgNewMessage:
		payload, err := protocol.ParsePayload[protocol.ChatMessage](msg)
		if err != nil {
			log.Printf("newMessage 解析失败: %v", err)
			return
		}
		s.applyNewMessage(*payload)

	case protocol.MsgUserJoined:
		payload, err := protocol.ParsePayload[protocol.Participant](msg)
		if err != nil {
			log.Printf("user_joined 解析失败: %v", err)
			return
		}
		s.applyUserJoined(*payload)

	case protocol.MsgUserLeft:
		payload, err := protocol.ParsePayload[protocol.Participant](msg)
		if err != nil {
			log.Printf("user_left 解析失败: %v", err)
			return
		}
		s.applyUserLeft(*payload)

	case protocol.MsgStats:
		payload, err := protocol.ParsePayload[protocol.StatsPayload](msg)
		if err != nil {
			log.Printf("stats 解析失败: %v", err)
			return
		}
		s.mu.Lock()
		s.lastStats = payload
		s.mu.Unlock()
		s.notify()
	}
}

// applyInitData 快照整体替换本地状态，在线列表按名字去重
func (s *Session) applyInitData(payload *protocol.InitDataPayload) {
	s.mu.Lock()
	s.messages = append([]protocol.ChatMessage(nil), payload.Messages...)

	s.onlineUsers = s.onlineUsers[:0]
	seen := make(map[string]bool, len(payload.OnlineUsers))
	for _, p := range payload.OnlineUsers {
		if !seen[p.Name] {
			seen[p.Name] = true
			s.onlineUsers = append(s.onlineUsers, p)
		}
	}
	s.mu.Unlock()
	s.notify()
}

// applyNewMessage 追加消息，按 ID 幂等：重复广播或本地已回显的直接忽略
func (s *Session) applyNewMessage(msg protocol.ChatMessage) {
	s.mu.Lock()
	for _, existing := range s.messages {
		if existing.ID == msg.ID {
			s.mu.Unlock()
			return
		}
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
}

// applyUserJoined 同名已在列表时不重复添加（防御重复广播和重连竞态）
func (s *Session) applyUserJoined(p protocol.Participant) {
	s.mu.Lock()
	for _, existing := range s.onlineUsers {
		if existing.Name == p.Name {
			s.mu.Unlock()
			return
		}
	}
	s.onlineUsers = append(s.onlineUsers, p)
	s.mu.Unlock()
	s.notify()
}

// applyUserLeft 按名字移除全部匹配项
func (s *Session) applyUserLeft(p protocol.Participant) {
	s.mu.Lock()
	kept := s.onlineUsers[:0]
	for _, existing := range s.onlineUsers {
		if existing.Name != p.Name {
			kept = append(kept, existing)
		}
	}
	s.onlineUsers = kept
	s.mu.Unlock()
	s.notify()
}

// notify 合并式状态变化通知
func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
