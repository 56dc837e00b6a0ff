package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/emojimon/world-relay/internal/config"
	"github.com/emojimon/world-relay/internal/protocol"
	"github.com/emojimon/world-relay/internal/server/storage"
	"github.com/emojimon/world-relay/internal/world"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 来源验证在 handleWebSocket 里做，这里放行
	},
}

// Server 世界中继服务器
type Server struct {
	config *config.Config
	redis  *redis.Client
	stats  *storage.Stats

	relay   *Relay
	handler *Handler

	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	mux *http.ServeMux
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	// 初始化 Redis 客户端
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 测试 Redis 连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	// 初始化世界状态，消息记录带启动欢迎语
	registry := world.NewRegistry()
	msgLog := world.NewLog(cfg.World.HistoryLimit)
	msgLog.Seed(protocol.Participant{
		Name:  cfg.World.SystemName,
		Emoji: cfg.World.SystemEmoji,
	}, cfg.World.WelcomeText)

	s := &Server{
		config:  cfg,
		redis:   rdb,
		stats:   storage.NewStats(rdb),
		clients: make(map[string]*Client),
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}

	s.relay = NewRelay(registry, msgLog, s.stats)
	s.handler = NewHandler(s.relay)

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	s.mux.HandleFunc("/health", s.handleHealth)

	return s, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	// 启动监控 goroutine
	go s.monitorStats()

	log.Printf("🚀 世界中继启动在 ws://%s/ws (CPU核心数: %d)", addr, runtime.NumCPU())
	server := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
	}
	return server.ListenAndServe()
}

// Routes 暴露路由，测试时配合 httptest 使用
func (s *Server) Routes() http.Handler {
	return s.mux
}

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)

	// 连接数限制检查
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Printf("🚫 达到最大连接数限制 (%d), IP: %s", s.maxConnections, clientIP)
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}

	release := func() { <-s.semaphore }

	// 来源验证
	if !s.originChecker.Check(r) {
		release()
		log.Printf("🚫 来源验证失败: %s (IP: %s)", r.Header.Get("Origin"), clientIP)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	// 速率限制检查
	if !s.rateLimiter.Allow(clientIP) {
		release()
		log.Printf("🚫 IP %s 请求过于频繁", clientIP)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		release()
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	// 创建客户端连接，信号量随连接生命周期释放
	client := NewClient(s, conn)
	client.IP = clientIP
	client.release = release
	s.registerClient(client)

	log.Printf("🔌 新连接 %s (IP: %s)", client.ID, clientIP)

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// registerClient 注册客户端连接
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端连接
func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[client.ID]; ok {
		delete(s.clients, client.ID)
		s.messageLimiter.Forget(client.ID)
		if client.release != nil {
			client.release()
			client.release = nil
		}
		log.Printf("🔌 连接 %s 已断开", client.ID)
	}
}

// GetConnectionCount 当前传输层连接数（含未加入的）
func (s *Server) GetConnectionCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		log.Printf("📊 [监控] 在线: %d | 连接: %d/%d | Goroutines: %d | 内存: %.2f MB",
			s.relay.OnlineCount(),
			s.GetConnectionCount(),
			s.maxConnections,
			runtime.NumGoroutine(),
			float64(m.Alloc)/1024/1024)
	}
}

// Shutdown 关闭服务器
func (s *Server) Shutdown() {
	// 关闭所有客户端连接
	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	// 关闭 Redis
	_ = s.redis.Close()

	log.Println("服务器已关闭")
}
