package host

import (
	"errors"
	"net"

	"github.com/dep2p/go-peerflood/config"
)

// Config Host 配置
type Config struct {
	// ListenAddr Listen 传空串时使用的地址
	ListenAddr string

	// AdvertiseAddr 显式对外地址，非空时作为本地 PeerID
	AdvertiseAddr string

	// KnownPeers 监听后拨号的种子节点
	KnownPeers []string

	// 入站限速（按连接）
	RateLimit      bool
	MessagesPerSec float64
	Burst          int
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建 Host 配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Config{
		ListenAddr:     cfg.Transport.ListenAddr,
		AdvertiseAddr:  cfg.NAT.AdvertiseAddr,
		KnownPeers:     append([]string(nil), cfg.KnownPeers...),
		RateLimit:      cfg.RateLimit.Enable,
		MessagesPerSec: cfg.RateLimit.MessagesPerSecond,
		Burst:          cfg.RateLimit.Burst,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.AdvertiseAddr != "" {
		if _, _, err := net.SplitHostPort(c.AdvertiseAddr); err != nil {
			return err
		}
	}
	if c.RateLimit && (c.MessagesPerSec <= 0 || c.Burst <= 0) {
		return errors.New("rate limit requires positive rate and burst")
	}
	return nil
}
