// Package storage 保存跨重启的世界活跃统计。
// 聊天记录本身只在内存里，这里只记计数和榜单。
package storage

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/emojimon/world-relay/internal/protocol"
)

const (
	// Redis key
	totalMessagesKey = "world:stats:messages"
	totalJoinsKey    = "world:stats:joins"
	peakOnlineKey    = "world:stats:peak_online"
	chatterBoardKey  = "world:board:chatters"
)

// Stats Redis 统计存储
type Stats struct {
	client *redis.Client
}

// NewStats 创建统计存储
func NewStats(client *redis.Client) *Stats {
	return &Stats{client: client}
}

// RecordMessage 记录一次发言：累计总数并更新发言榜
func (s *Stats) RecordMessage(ctx context.Context, name string) error {
	pipe := s.client.Pipeline()
	pipe.Incr(ctx, totalMessagesKey)
	pipe.ZIncrBy(ctx, chatterBoardKey, 1, name)
	_, err := pipe.Exec(ctx)
	return err
}

// RecordJoin 记录一次加入
func (s *Stats) RecordJoin(ctx context.Context, name string) error {
	return s.client.Incr(ctx, totalJoinsKey).Err()
}

// RecordPeakOnline 更新在线峰值，只增不减
func (s *Stats) RecordPeakOnline(ctx context.Context, online int64) error {
	current, err := s.client.Get(ctx, peakOnlineKey).Int64()
	if err != nil && err != redis.Nil {
		return err
	}
	if online <= current {
		return nil
	}
	return s.client.Set(ctx, peakOnlineKey, online, 0).Err()
}

// Summary 汇总统计和发言榜前 topN 名
func (s *Stats) Summary(ctx context.Context, topN int) (*protocol.StatsPayload, error) {
	summary := &protocol.StatsPayload{}

	for key, dst := range map[string]*int64{
		totalMessagesKey: &summary.TotalMessages,
		totalJoinsKey:    &summary.TotalJoins,
		peakOnlineKey:    &summary.PeakOnline,
	} {
		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, err
		}
		*dst = n
	}

	entries, err := s.client.ZRevRangeWithScores(ctx, chatterBoardKey, 0, int64(topN)-1).Result()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		name, _ := entry.Member.(string)
		summary.TopChatters = append(summary.TopChatters, protocol.ChatterStat{
			Name:  name,
			Count: int64(entry.Score),
		})
	}

	return summary, nil
}

// Reset 清空全部统计，仅测试和运维用
func (s *Stats) Reset(ctx context.Context) error {
	return s.client.Del(ctx, totalMessagesKey, totalJoinsKey, peakOnlineKey, chatterBoardKey).Err()
}
