// Package client 实现世界会话的 Go 客户端：底层 WebSocket 传输加
// 一份供 UI 使用的本地状态镜像。
package client

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emojimon/world-relay/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 最大重连次数
	maxReconnectAttempts = 5
	// 重连间隔
	reconnectInterval = 2 * time.Second
)

// Client WebSocket 传输客户端
type Client struct {
	ServerURL string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}

	// 回调
	OnMessage      func(*protocol.Message) // 收到消息
	OnConnect      func()                  // 连接（或重连）建立
	OnDisconnect   func()                  // 连接断开
	OnReconnecting func(attempt, maxTries int)
	OnGiveUp       func() // 重连次数耗尽

	mu           sync.RWMutex
	closed       bool
	reconnecting atomic.Bool
}

// NewClient 创建传输客户端
func NewClient(serverURL string) *Client {
	return &Client{
		ServerURL: serverURL,
		send:      make(chan []byte, 256),
		done:      make(chan struct{}),
	}
}

// Connect 连接服务器并启动读写协程
func (c *Client) Connect() error {
	if err := c.dial(); err != nil {
		return err
	}
	if c.OnConnect != nil {
		c.OnConnect()
	}
	return nil
}

// dial 建立一条新连接
func (c *Client) dial() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(c.ServerURL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readPump(conn)
	go c.writePump(conn)

	return nil
}

// readPump 从服务器读取消息
func (c *Client) readPump(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		if c.OnDisconnect != nil {
			c.OnDisconnect()
		}
		// 断线后尝试重连，服务端没有会话概念，重连后由上层重新 join
		if !c.isClosed() && !c.reconnecting.Load() {
			go c.tryReconnect()
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("连接断开: %v", err)
			}
			return
		}

		msg, err := protocol.Decode(message)
		if err != nil {
			log.Printf("消息解析错误: %v", err)
			continue
		}

		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
	}
}

// writePump 向服务器写入消息
func (c *Client) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// tryReconnect 带上限的重连循环
func (c *Client) tryReconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		if c.isClosed() {
			return
		}
		if c.OnReconnecting != nil {
			c.OnReconnecting(attempt, maxReconnectAttempts)
		}

		time.Sleep(reconnectInterval)

		if err := c.dial(); err != nil {
			log.Printf("重连失败 (%d/%d): %v", attempt, maxReconnectAttempts, err)
			continue
		}

		log.Printf("✅ 重连成功 (第 %d 次尝试)", attempt)
		if c.OnConnect != nil {
			c.OnConnect()
		}
		return
	}

	log.Printf("🚫 重连次数耗尽，放弃")
	if c.OnGiveUp != nil {
		c.OnGiveUp()
	}
}

// SendMessage 发送消息
func (c *Client) SendMessage(msg *protocol.Message) error {
	if c.isClosed() {
		return errors.New("connection closed")
	}

	data, err := msg.Encode()
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// Close 关闭连接，不再重连
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
