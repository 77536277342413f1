package metrics

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-peerflood/config"
)

// Config 指标配置
type Config struct {
	// Namespace 指标名前缀
	Namespace string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return Config{Namespace: config.DefaultMetricsConfig().Namespace}
	}
	return Config{Namespace: cfg.Metrics.Namespace}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(NewMetricsFromParams),
)

// NewMetricsFromParams 从参数创建 Metrics
func NewMetricsFromParams(p Params) *Metrics {
	return NewMetrics(ConfigFromUnified(p.UnifiedCfg).Namespace)
}
