package config

import (
	"fmt"
	"time"
)

// LivenessConfig 存活检测配置
type LivenessConfig struct {
	// Interval 检查周期
	Interval Duration `json:"interval"`

	// Threshold 新鲜度阈值
	//
	// 最近一次存活时间早于 now-Threshold 的邻居在每个周期收到一次 ping。
	Threshold Duration `json:"threshold"`
}

// DefaultLivenessConfig 返回默认存活检测配置
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{
		Interval:  Duration(25 * time.Second),
		Threshold: Duration(128 * time.Second),
	}
}

// Validate 验证存活检测配置
func (c LivenessConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval: %w", ErrNonPositive)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold: %w", ErrNonPositive)
	}
	return nil
}
