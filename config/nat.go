package config

import (
	"fmt"
	"net"
	"net/url"
	"time"
)

// NATConfig 公网地址自检配置
type NATConfig struct {
	// EnablePublicIPCheck 是否在监听时查询外部可见地址
	//
	// 禁用或查询失败时节点视自己为非公网可达。
	EnablePublicIPCheck bool `json:"enable_public_ip_check"`

	// Services HTTP IP 查询服务列表，按顺序尝试
	Services []string `json:"services,omitempty"`

	// Timeout 单次查询超时
	Timeout Duration `json:"timeout"`

	// AdvertiseAddr 显式声明的对外地址（host:port），非空时直接作为 PeerID
	AdvertiseAddr string `json:"advertise_addr,omitempty"`
}

// DefaultNATConfig 返回默认配置
func DefaultNATConfig() NATConfig {
	return NATConfig{
		EnablePublicIPCheck: true,
		Services: []string{
			"http://checkip.dyndns.org/",
			"https://api.ipify.org",
			"https://checkip.amazonaws.com",
		},
		Timeout: Duration(10 * time.Second),
	}
}

// Validate 验证配置
func (c NATConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout: %w", ErrNonPositive)
	}
	for _, s := range c.Services {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("service %q: %w", s, ErrInvalidValue)
		}
	}
	if c.AdvertiseAddr != "" {
		if _, _, err := net.SplitHostPort(c.AdvertiseAddr); err != nil {
			return fmt.Errorf("advertise_addr %q: %w", c.AdvertiseAddr, err)
		}
	}
	return nil
}
