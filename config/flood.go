package config

import (
	"fmt"
	"time"
)

// FloodConfig 洪泛搜索与邻居介绍配置
type FloodConfig struct {
	// IntroduceFriends 每次介绍携带的普通邻居数量上限
	IntroduceFriends int `json:"introduce_friends"`

	// IntroduceBestFriends 每次介绍携带的公网邻居数量上限
	IntroduceBestFriends int `json:"introduce_best_friends"`

	// IntroduceDialConcurrency 处理介绍消息时的并发拨号数
	IntroduceDialConcurrency int `json:"introduce_dial_concurrency"`

	// QueryCacheSize 每个发起方保留的搜索记录上限
	QueryCacheSize int `json:"query_cache_size"`

	// ReplyCacheSize 应答去重缓存容量
	ReplyCacheSize int `json:"reply_cache_size"`

	// ReplyCacheTTL 应答去重记录的保留时间
	ReplyCacheTTL Duration `json:"reply_cache_ttl"`

	// Seed 邻居抽样的随机种子，0 表示使用时间种子
	Seed int64 `json:"seed,omitempty"`
}

// DefaultFloodConfig 返回默认洪泛配置
func DefaultFloodConfig() FloodConfig {
	return FloodConfig{
		IntroduceFriends:         3,
		IntroduceBestFriends:     3,
		IntroduceDialConcurrency: 3,
		QueryCacheSize:           1024,
		ReplyCacheSize:           4096,
		ReplyCacheTTL:            Duration(2 * time.Minute),
	}
}

// Validate 验证洪泛配置
func (c FloodConfig) Validate() error {
	if c.IntroduceFriends < 0 || c.IntroduceFriends > 3 {
		return fmt.Errorf("introduce_friends %d: %w", c.IntroduceFriends, ErrOutOfRange)
	}
	if c.IntroduceBestFriends < 0 || c.IntroduceBestFriends > 3 {
		return fmt.Errorf("introduce_best_friends %d: %w", c.IntroduceBestFriends, ErrOutOfRange)
	}
	if c.IntroduceDialConcurrency <= 0 {
		return fmt.Errorf("introduce_dial_concurrency: %w", ErrNonPositive)
	}
	if c.QueryCacheSize <= 0 {
		return fmt.Errorf("query_cache_size: %w", ErrNonPositive)
	}
	if c.ReplyCacheSize <= 0 {
		return fmt.Errorf("reply_cache_size: %w", ErrNonPositive)
	}
	if c.ReplyCacheTTL <= 0 {
		return fmt.Errorf("reply_cache_ttl: %w", ErrNonPositive)
	}
	return nil
}
