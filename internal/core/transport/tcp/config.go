package tcp

import (
	"time"

	"github.com/dep2p/go-peerflood/config"
)

// Config TCP 传输配置
type Config struct {
	DialTimeout   time.Duration
	IdleTimeout   time.Duration
	WriteTimeout  time.Duration
	SendQueueSize int
	MaxLineSize   int
	MaxInbound    int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建传输配置
func ConfigFromUnified(cfg *config.Config) Config {
	tc := config.DefaultTransportConfig()
	if cfg != nil {
		tc = cfg.Transport
	}
	return Config{
		DialTimeout:   tc.DialTimeout.Duration(),
		IdleTimeout:   tc.IdleTimeout.Duration(),
		WriteTimeout:  tc.WriteTimeout.Duration(),
		SendQueueSize: tc.SendQueueSize,
		MaxLineSize:   tc.MaxLineSize,
		MaxInbound:    tc.MaxInbound,
	}
}
