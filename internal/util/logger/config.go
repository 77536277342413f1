// Package logger 提供 peerflood 的统一日志系统
//
// 基于标准库 log/slog，每个子系统一个 Logger：
//
//	var log = logger.Logger("flood")
//
//	log.Debug("转发搜索", "id", id, "ttl", ttl)
//
// 日志级别按子系统配置，来源有两个（后者覆盖前者）：
//   - 环境变量 PEERFLOOD_LOG_LEVEL，格式 "子系统=级别,...,默认级别"，
//     例如 flood=debug,transport=warn,info
//   - 运行时调用 Apply / SetLevel（配置文件中的 log 段经由 Apply 生效）
//
// PEERFLOOD_LOG_FORMAT 取 text（默认）或 json。
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// 环境变量名
const (
	EnvLevel  = "PEERFLOOD_LOG_LEVEL"
	EnvFormat = "PEERFLOOD_LOG_FORMAT"
)

// Config 日志配置
type Config struct {
	// DefaultLevel 默认日志级别
	DefaultLevel slog.Level

	// SubsystemLevels 各子系统的日志级别
	SubsystemLevels map[string]slog.Level

	// Format 输出格式
	Format LogFormat
}

// LevelForSubsystem 获取指定子系统的日志级别
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	if level, ok := c.SubsystemLevels[subsystem]; ok {
		return level
	}
	return c.DefaultLevel
}

var (
	configMu    sync.RWMutex
	configCache *Config
)

// currentConfig 返回当前配置，首次调用时从环境变量解析
func currentConfig() *Config {
	configMu.RLock()
	cfg := configCache
	configMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	configMu.Lock()
	defer configMu.Unlock()
	if configCache == nil {
		configCache = configFromEnv()
	}
	return configCache
}

// configFromEnv 从环境变量解析配置
func configFromEnv() *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		Format:          FormatText,
	}

	if spec := os.Getenv(EnvLevel); spec != "" {
		ParseLevelSpec(cfg, spec)
	}
	if strings.EqualFold(os.Getenv(EnvFormat), "json") {
		cfg.Format = FormatJSON
	}
	return cfg
}

// ParseLevelSpec 将级别描述解析进 cfg
//
// 格式: subsystem=level,subsystem=level,defaultLevel。无法识别的片段被忽略。
func ParseLevelSpec(cfg *Config, spec string) {
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		subsystem, levelName, found := strings.Cut(part, "=")
		if !found {
			if level, ok := ParseLevel(part); ok {
				cfg.DefaultLevel = level
			}
			continue
		}

		if level, ok := ParseLevel(strings.TrimSpace(levelName)); ok {
			cfg.SubsystemLevels[strings.TrimSpace(subsystem)] = level
		}
	}
}

// ParseLevel 解析日志级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Apply 用级别描述和格式覆盖当前配置，并刷新已创建的 Logger 级别
//
// 空字符串表示保持不变。格式只对之后创建的 Logger 生效。
func Apply(levelSpec, format string) {
	cfg := currentConfig()

	configMu.Lock()
	next := &Config{
		DefaultLevel:    cfg.DefaultLevel,
		SubsystemLevels: make(map[string]slog.Level, len(cfg.SubsystemLevels)),
		Format:          cfg.Format,
	}
	for k, v := range cfg.SubsystemLevels {
		next.SubsystemLevels[k] = v
	}
	if levelSpec != "" {
		ParseLevelSpec(next, levelSpec)
	}
	switch strings.ToLower(format) {
	case "json":
		next.Format = FormatJSON
	case "text":
		next.Format = FormatText
	}
	configCache = next
	configMu.Unlock()

	handlers.Range(func(key, value any) bool {
		value.(*subsystemHandler).SetLevel(next.LevelForSubsystem(key.(string)))
		return true
	})
}

// ResetConfig 重置配置缓存（仅用于测试）
func ResetConfig() {
	configMu.Lock()
	configCache = nil
	configMu.Unlock()
}
