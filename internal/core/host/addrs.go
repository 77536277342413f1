package host

import (
	"context"
	"net"
	"strconv"
)

// resolveIdentity 确定本地 PeerID 与公网可达性
//
// PeerID 优先取 advertise；否则为监听主机加实际端口，监听主机未指定
// （0.0.0.0、::）时用外部 IP 代替，外部 IP 也不可得时用 127.0.0.1。
// 公网可达当且仅当外部 IP 与 PeerID 的主机部分一致。
func resolveIdentity(listenHost string, port int, advertise, externalIP string) (string, bool) {
	if advertise != "" {
		host, _, _ := net.SplitHostPort(advertise)
		return advertise, externalIP != "" && host == externalIP
	}

	host := listenHost
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = externalIP
		if host == "" {
			host = "127.0.0.1"
		}
		return net.JoinHostPort(host, strconv.Itoa(port)), false
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), externalIP != "" && host == externalIP
}

// discoverExternalIP 查询外部 IP，失败时返回空串
func (h *Host) discoverExternalIP(ctx context.Context) string {
	if h.discoverer == nil {
		return ""
	}
	ip, err := h.discoverer.Discover(ctx)
	if err != nil {
		log.Info("外部地址查询失败，视为非公网可达", "err", err)
		return ""
	}
	return ip
}
