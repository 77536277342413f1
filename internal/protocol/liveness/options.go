package liveness

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-peerflood/config"
)

// Option 定义配置选项函数
type Option func(*Config)

// Config 存活检测配置
type Config struct {
	// Interval 检测间隔
	Interval time.Duration

	// Threshold 新鲜度阈值
	Threshold time.Duration

	// Clock 时钟，测试中可替换为 clock.Mock
	Clock clock.Clock
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	lc := config.DefaultLivenessConfig()
	return &Config{
		Interval:  lc.Interval.Duration(),
		Threshold: lc.Threshold.Duration(),
		Clock:     clock.New(),
	}
}

// FromUnified 从统一配置读取间隔与阈值
func FromUnified(cfg *config.Config) Option {
	return func(c *Config) {
		if cfg == nil {
			return
		}
		c.Interval = cfg.Liveness.Interval.Duration()
		c.Threshold = cfg.Liveness.Threshold.Duration()
	}
}

// WithInterval 设置检测间隔
func WithInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.Interval = interval
	}
}

// WithThreshold 设置新鲜度阈值
func WithThreshold(threshold time.Duration) Option {
	return func(c *Config) {
		c.Threshold = threshold
	}
}

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		if clk != nil {
			c.Clock = clk
		}
	}
}
