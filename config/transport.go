package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// TransportConfig TCP 传输配置
type TransportConfig struct {
	// ListenAddr 默认监听地址（host:port），Node.Listen 传空串时使用
	ListenAddr string `json:"listen_addr"`

	// DialTimeout 拨号超时
	DialTimeout Duration `json:"dial_timeout"`

	// IdleTimeout 传输层读超时
	//
	// 在此时间内未收到任何数据的连接被视为超时并注销，
	// 与应用层 ping/pong 新鲜度阈值相互独立。
	IdleTimeout Duration `json:"idle_timeout"`

	// WriteTimeout 单条消息写超时
	WriteTimeout Duration `json:"write_timeout"`

	// SendQueueSize 每个连接的发送队列长度
	SendQueueSize int `json:"send_queue_size"`

	// MaxLineSize 单行消息长度上限（字节）
	MaxLineSize int `json:"max_line_size"`

	// MaxInbound 同时接受的入站连接上限（0 表示不限制）
	MaxInbound int `json:"max_inbound"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ListenAddr:    "0.0.0.0:9099",
		DialTimeout:   Duration(10 * time.Second),
		IdleTimeout:   Duration(5 * time.Minute),
		WriteTimeout:  Duration(10 * time.Second),
		SendQueueSize: 256,
		MaxLineSize:   64 * 1024,
		MaxInbound:    256,
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if c.ListenAddr != "" {
		if _, port, err := net.SplitHostPort(c.ListenAddr); err != nil {
			return fmt.Errorf("listen_addr %q: %w", c.ListenAddr, err)
		} else if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
			return fmt.Errorf("listen_addr port %q: %w", port, ErrOutOfRange)
		}
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial_timeout: %w", ErrNonPositive)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout: %w", ErrNonPositive)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout: %w", ErrNonPositive)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("send_queue_size: %w", ErrNonPositive)
	}
	if c.MaxLineSize < 256 {
		return fmt.Errorf("max_line_size %d below 256: %w", c.MaxLineSize, ErrOutOfRange)
	}
	if c.MaxInbound < 0 {
		return fmt.Errorf("max_inbound: %w", ErrOutOfRange)
	}
	return nil
}
