package config

import "fmt"

// RateLimitConfig 入站消息限速配置（按连接）
type RateLimitConfig struct {
	// Enable 是否启用
	Enable bool `json:"enable"`

	// MessagesPerSecond 稳态速率
	MessagesPerSecond float64 `json:"messages_per_second"`

	// Burst 突发容量
	Burst int `json:"burst"`
}

// DefaultRateLimitConfig 返回默认限速配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enable:            true,
		MessagesPerSecond: 200,
		Burst:             400,
	}
}

// Validate 验证限速配置
func (c RateLimitConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.MessagesPerSecond <= 0 {
		return fmt.Errorf("messages_per_second: %w", ErrNonPositive)
	}
	if c.Burst <= 0 {
		return fmt.Errorf("burst: %w", ErrNonPositive)
	}
	return nil
}
