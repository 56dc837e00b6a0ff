package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 中继服务配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	World    WorldConfig    `yaml:"world"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
}

// RedisConfig Redis 配置（活跃统计用）
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// WorldConfig 世界配置
type WorldConfig struct {
	HistoryLimit int    `yaml:"history_limit"` // 保留的聊天消息条数，0 为不限
	WelcomeText  string `yaml:"welcome_text"`  // 启动时的欢迎消息
	SystemName   string `yaml:"system_name"`   // 系统消息发送者名字
	SystemEmoji  string `yaml:"system_emoji"`  // 系统消息发送者表情
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 连接级速率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// MessageLimitConfig 消息级速率限制
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.fillDefaults()
	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

// fillDefaults 为零值字段补默认值
func (c *Config) fillDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3131
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = 1024
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.World.HistoryLimit == 0 {
		c.World.HistoryLimit = 500
	}
	if c.World.WelcomeText == "" {
		c.World.WelcomeText = "ยินดีต้อนรับสู่ EmojiMon World!"
	}
	if c.World.SystemName == "" {
		c.World.SystemName = "ระบบ"
	}
	if c.World.SystemEmoji == "" {
		c.World.SystemEmoji = "🤖"
	}
	if len(c.Security.AllowedOrigins) == 0 {
		c.Security.AllowedOrigins = []string{"*"}
	}
	if c.Security.RateLimit.MaxPerSecond == 0 {
		c.Security.RateLimit.MaxPerSecond = 10
	}
	if c.Security.RateLimit.MaxPerMinute == 0 {
		c.Security.RateLimit.MaxPerMinute = 60
	}
	if c.Security.RateLimit.BanDuration == 0 {
		c.Security.RateLimit.BanDuration = 60
	}
	if c.Security.MessageLimit.MaxPerSecond == 0 {
		c.Security.MessageLimit.MaxPerSecond = 20
	}
}
