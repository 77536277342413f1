package config

import (
	"fmt"
	"strings"
)

// LogConfig 日志配置
type LogConfig struct {
	// Level 级别描述，格式同 PEERFLOOD_LOG_LEVEL（如 "flood=debug,info"）
	Level string `json:"level,omitempty"`

	// Format 输出格式：text 或 json
	Format string `json:"format,omitempty"`

	// File 日志文件路径，为空时输出到 stderr
	File string `json:"file,omitempty"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Format: "text",
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("format %q: %w", c.Format, ErrInvalidValue)
	}
}
