package logger

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput 将全局输出切换到 buffer，测试结束后恢复
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	return buf
}

// TestSetOutput 已创建的 Logger 随 SetOutput 重定向
func TestSetOutput(t *testing.T) {
	log := Logger("test-output")
	buf := captureOutput(t)

	log.Info("after switch", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "after switch")
	assert.Contains(t, out, "key=value")
	assert.Contains(t, out, "subsystem=test-output")
	assert.Contains(t, out, "level=info")
}

// TestLogger_Cached 同一子系统返回同一实例
func TestLogger_Cached(t *testing.T) {
	assert.Same(t, Logger("cached"), Logger("cached"))
}

// TestParseLevelSpec 解析子系统级别描述
func TestParseLevelSpec(t *testing.T) {
	cfg := &Config{DefaultLevel: slog.LevelInfo, SubsystemLevels: map[string]slog.Level{}}
	ParseLevelSpec(cfg, "flood=debug, transport=warn ,error,bogus=loud,")

	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("flood"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("transport"))
	assert.Equal(t, slog.LevelError, cfg.LevelForSubsystem("host"))
	_, ok := cfg.SubsystemLevels["bogus"]
	assert.False(t, ok)
}

// TestSetLevel 动态调整级别
func TestSetLevel(t *testing.T) {
	log := Logger("test-level")
	buf := captureOutput(t)

	SetLevel("test-level", slog.LevelWarn)
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

// TestApply 配置段覆盖后刷新已有 Logger
func TestApply(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	log := Logger("test-apply")
	buf := captureOutput(t)

	Apply("test-apply=error", "")
	log.Warn("hidden")
	log.Error("shown")

	require.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "hidden")
}

// TestDiscard 丢弃 Logger 不输出
func TestDiscard(t *testing.T) {
	buf := captureOutput(t)
	Discard().Error("nothing")
	assert.Empty(t, buf.String())
}
