// Package config 提供 peerflood 的统一配置管理
//
// 主 Config 结构体由各功能模块的子配置组成，每个子配置在独立文件中定义，
// 并提供 Default*() 默认值与 Validate() 校验。
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Transport.ListenAddr = "0.0.0.0:9099"
//
//	// 从 JSON 加载（未出现的字段保持默认值）
//	cfg, err := config.FromJSON(data)
//
//	// 从文件加载
//	cfg, err := config.LoadFile("peerflood.json")
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 是 peerflood 的完整配置结构
//
// 配置按照功能模块组织：
//   - Transport: TCP 监听、拨号与分帧
//   - Flood: 洪泛搜索与邻居介绍
//   - Liveness: ping/pong 存活检测
//   - NAT: 公网地址自检
//   - RateLimit: 入站消息限速
//   - Metrics: Prometheus 指标
//   - Log: 日志
type Config struct {
	// Transport 传输层配置
	Transport TransportConfig `json:"transport"`

	// Flood 洪泛搜索配置
	Flood FloodConfig `json:"flood"`

	// Liveness 存活检测配置
	Liveness LivenessConfig `json:"liveness"`

	// NAT 公网地址自检配置
	NAT NATConfig `json:"nat"`

	// RateLimit 入站限速配置
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`

	// KnownPeers 启动监听后主动拨号的种子节点（host:port）
	KnownPeers []string `json:"known_peers,omitempty"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Transport: DefaultTransportConfig(),
		Flood:     DefaultFloodConfig(),
		Liveness:  DefaultLivenessConfig(),
		NAT:       DefaultNATConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Metrics:   DefaultMetricsConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	if err := c.Flood.Validate(); err != nil {
		return fmt.Errorf("flood: %w", err)
	}
	if err := c.Liveness.Validate(); err != nil {
		return fmt.Errorf("liveness: %w", err)
	}
	if err := c.NAT.Validate(); err != nil {
		return fmt.Errorf("nat: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	for _, p := range c.KnownPeers {
		if p == "" {
			return fmt.Errorf("known_peers: %w", ErrEmptyAddress)
		}
	}
	return nil
}

// FromJSON 从 JSON 数据解析配置，未出现的字段保持默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置并校验
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ToJSON 将配置序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
