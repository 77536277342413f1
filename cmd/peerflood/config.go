package main

import (
	"strconv"
	"strings"

	"github.com/dep2p/go-peerflood/config"
)

// ============================================================================
//                              环境变量覆盖（CLI 专用）
// ============================================================================

// applyEnvOverrides 应用环境变量覆盖配置
//
// 支持的环境变量（均使用 PEERFLOOD_ 前缀）：
//   - PEERFLOOD_LISTEN_ADDR: 监听地址
//   - PEERFLOOD_ADVERTISE_ADDR: 对外地址
//   - PEERFLOOD_KNOWN_PEERS: 种子节点（逗号分隔）
//   - PEERFLOOD_PUBLIC_IP_CHECK: 是否启用公网自检
//   - PEERFLOOD_METRICS_ADDR: 指标端点地址
//   - PEERFLOOD_LOG_FILE: 日志文件
func applyEnvOverrides(cfg *config.Config, getenv func(string) string) {
	if v := getenv("PEERFLOOD_LISTEN_ADDR"); v != "" {
		cfg.Transport.ListenAddr = v
	}
	if v := getenv("PEERFLOOD_ADVERTISE_ADDR"); v != "" {
		cfg.NAT.AdvertiseAddr = v
	}
	if v := getenv("PEERFLOOD_KNOWN_PEERS"); v != "" {
		cfg.KnownPeers = splitAndTrim(v, ",")
	}
	if v := getenv("PEERFLOOD_PUBLIC_IP_CHECK"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.NAT.EnablePublicIPCheck = b
		}
	}
	if v := getenv("PEERFLOOD_METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}
	if v := getenv("PEERFLOOD_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
