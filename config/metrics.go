package config

import (
	"fmt"
	"net"
)

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Namespace 指标名前缀
	Namespace string `json:"namespace"`

	// ListenAddr 指标 HTTP 端点地址，为空时不暴露（仅命令行程序使用）
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "peerflood",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace: %w", ErrInvalidValue)
	}
	if c.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
			return fmt.Errorf("listen_addr %q: %w", c.ListenAddr, err)
		}
	}
	return nil
}
