// Package addrutil 提供 host:port 地址工具
package addrutil

import (
	"net"
	"strconv"
)

// ============================================================================
//                              地址解析
// ============================================================================

// Host 返回 host:port 中的主机部分，无端口时原样返回
func Host(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// ExtractIP 从 host:port 或纯 IP 中提取 IP，主机为域名时返回 nil
func ExtractIP(addr string) net.IP {
	if addr == "" {
		return nil
	}
	return net.ParseIP(Host(addr))
}

// IsDialAddr 判断是否为可拨号的 host:port
//
// 主机非空且不是未指定地址，端口在 1..65535。
func IsDialAddr(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		return false
	}
	return true
}

// ============================================================================
//                              IP 类型判断
// ============================================================================

// IsLoopbackAddr 判断是否是回环地址
func IsLoopbackAddr(addr string) bool {
	ip := ExtractIP(addr)
	return ip != nil && ip.IsLoopback()
}

// IsPrivateAddr 判断是否是私网地址
//
// 私网地址范围：
//   - 10.0.0.0/8
//   - 172.16.0.0/12
//   - 192.168.0.0/16
//   - fc00::/7 (IPv6 ULA)
//   - fe80::/10 (IPv6 链路本地)
func IsPrivateAddr(addr string) bool {
	ip := ExtractIP(addr)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

// IsPublicAddr 判断是否是公网地址：非回环、非私网的有效单播地址
func IsPublicAddr(addr string) bool {
	ip := ExtractIP(addr)
	if ip == nil {
		return false
	}
	return ip.IsGlobalUnicast() && !ip.IsPrivate() && !ip.IsLoopback()
}

// AddrType 返回地址类型描述
//
// 返回值：
//   - "loopback" - 回环地址
//   - "private" - 私网地址
//   - "public" - 公网地址
//   - "dns" - 域名（无法判断 IP 类型）
//   - "unknown" - 未知类型
func AddrType(addr string) string {
	if addr == "" {
		return "unknown"
	}
	if ExtractIP(addr) == nil {
		if Host(addr) != "" {
			return "dns"
		}
		return "unknown"
	}

	switch {
	case IsLoopbackAddr(addr):
		return "loopback"
	case IsPrivateAddr(addr):
		return "private"
	case IsPublicAddr(addr):
		return "public"
	default:
		return "unknown"
	}
}
