package server

import (
	"context"
	"log"
	"strings"

	"github.com/emojimon/world-relay/internal/protocol"
)

// 统计榜单返回的条数
const statsTopN = 10

// Handler 消息处理器：解析并校验 payload，再交给中继。
// 格式错误或字段缺失的消息在这里静默丢弃，没有回执通道可以报告
type Handler struct {
	relay *Relay
}

// NewHandler 创建处理器
func NewHandler(relay *Relay) *Handler {
	return &Handler{relay: relay}
}

// Handle 处理一条来自客户端的消息
func (h *Handler) Handle(client ClientConn, msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgJoin:
		h.handleJoin(client, msg)
	case protocol.MsgSendMessage:
		h.handleSendMessage(client, msg)
	case protocol.MsgGetStats:
		h.handleGetStats(client)
	default:
		log.Printf("⚠️ 未知消息类型 '%s' (连接 %s)，已丢弃", msg.Type, client.GetID())
	}
}

// handleJoin 处理加入请求
func (h *Handler) handleJoin(client ClientConn, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.JoinPayload](msg)
	if err != nil {
		log.Printf("join payload 解析失败，已丢弃: %v", err)
		return
	}
	if !payload.Valid() {
		log.Printf("join payload 字段缺失，已丢弃 (连接 %s)", client.GetID())
		return
	}

	h.relay.Join(client, *payload)
}

// handleSendMessage 处理聊天请求
func (h *Handler) handleSendMessage(client ClientConn, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.SendMessagePayload](msg)
	if err != nil {
		log.Printf("sendMessage payload 解析失败，已丢弃: %v", err)
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		return
	}

	// 发送者身份以中继登记的为准，payload 里的 sender 只是客户端回显用
	h.relay.Send(client, payload.Text)
}

// handleGetStats 查询活跃统计并回给请求方
func (h *Handler) handleGetStats(client ClientConn) {
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	summary, err := h.relay.Stats(ctx, statsTopN)
	if err != nil {
		log.Printf("查询活跃统计失败: %v", err)
		return
	}

	client.SendMessage(protocol.MustNewMessage(protocol.MsgStats, summary))
}
