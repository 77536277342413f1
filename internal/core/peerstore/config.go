package peerstore

import "github.com/dep2p/go-peerflood/config"

// Config Store 配置
type Config struct {
	// QueryCacheSize 每个发起方保留的搜索记录上限
	QueryCacheSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建 Store 配置
func ConfigFromUnified(cfg *config.Config) Config {
	fc := config.DefaultFloodConfig()
	if cfg != nil {
		fc = cfg.Flood
	}
	return Config{QueryCacheSize: fc.QueryCacheSize}
}
