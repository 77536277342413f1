// Package http 提供基于 HTTP 的外部 IP 发现
//
// 节点在监听时查询一次自己对外可见的 IPv4 地址，用于判断自己是否公网可达。
// 服务按顺序尝试，响应中的第一个 IPv4 地址即为结果，因此既支持纯文本服务，
// 也支持 checkip.dyndns.org 这类返回 HTML 的服务。
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/dep2p/go-peerflood/internal/util/logger"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

// 包级别日志实例
var log = logger.Logger("nat.http")

// 错误定义
var (
	ErrNoService         = errors.New("no HTTP IP service available")
	ErrInvalidIP         = errors.New("no IPv4 address in response")
	ErrAllServicesFailed = errors.New("all HTTP IP services failed")
	ErrDisabled          = errors.New("public IP check disabled")
)

// DefaultServices 默认的 HTTP IP 发现服务
var DefaultServices = []string{
	"http://checkip.dyndns.org/",
	"https://api.ipify.org",
	"https://checkip.amazonaws.com",
}

// maxBody 单次响应读取上限
const maxBody = 1024

var ipv4Pattern = regexp.MustCompile(`\b[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\b`)

// Discoverer HTTP IP 发现器实现
type Discoverer struct {
	services []string
	client   *http.Client

	// 缓存
	cachedIP      string
	cachedTime    time.Time
	cacheDuration time.Duration
	cacheMu       sync.RWMutex
}

// 确保实现接口
var _ pkgif.IPDiscoverer = (*Discoverer)(nil)

// NewDiscoverer 创建 HTTP IP 发现器
func NewDiscoverer(services []string, timeout time.Duration) *Discoverer {
	if len(services) == 0 {
		services = DefaultServices
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Discoverer{
		services: services,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:       4,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: true,
			},
		},
		cacheDuration: 5 * time.Minute,
	}
}

// Name 返回发现器名称
func (d *Discoverer) Name() string {
	return "http"
}

// Discover 发现外部 IPv4 地址
func (d *Discoverer) Discover(ctx context.Context) (string, error) {
	cacheDuration := d.getCacheDuration()
	d.cacheMu.RLock()
	if d.cachedIP != "" && time.Since(d.cachedTime) < cacheDuration {
		ip := d.cachedIP
		d.cacheMu.RUnlock()
		return ip, nil
	}
	d.cacheMu.RUnlock()

	if len(d.services) == 0 {
		return "", ErrNoService
	}

	// 尝试每个服务
	var lastErr error
	for _, service := range d.services {
		ip, err := d.queryService(ctx, service)
		if err != nil {
			log.Debug("HTTP IP 服务查询失败",
				"service", service,
				"err", err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		// 更新缓存
		d.cacheMu.Lock()
		d.cachedIP = ip
		d.cachedTime = time.Now()
		d.cacheMu.Unlock()

		log.Info("通过 HTTP 服务获取到外部 IP",
			"service", service,
			"ip", ip)

		return ip, nil
	}

	return "", fmt.Errorf("%w: %v", ErrAllServicesFailed, lastErr)
}

// queryService 查询单个 HTTP 服务
func (d *Discoverer) queryService(ctx context.Context, service string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service, nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("User-Agent", "peerflood/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP 请求失败: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP 状态码: %d", resp.StatusCode)
	}

	// 限制读取大小
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}

	return ExtractIPv4(string(body))
}

// ExtractIPv4 返回文本中第一个合法的 IPv4 地址
func ExtractIPv4(text string) (string, error) {
	for _, m := range ipv4Pattern.FindAllString(text, -1) {
		if ip := net.ParseIP(m); ip != nil && ip.To4() != nil {
			return ip.String(), nil
		}
	}
	return "", ErrInvalidIP
}

// SetCacheDuration 设置缓存时间
func (d *Discoverer) SetCacheDuration(duration time.Duration) {
	d.cacheMu.Lock()
	d.cacheDuration = duration
	d.cacheMu.Unlock()
}

// getCacheDuration 获取缓存时间（线程安全）
func (d *Discoverer) getCacheDuration() time.Duration {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cacheDuration
}

// ClearCache 清除缓存
func (d *Discoverer) ClearCache() {
	d.cacheMu.Lock()
	d.cachedIP = ""
	d.cacheMu.Unlock()
}

// Close 关闭发现器
func (d *Discoverer) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// ============================================================================
//                              固定结果发现器
// ============================================================================

// Static 返回固定结果的发现器
//
// ip 为空时 Discover 返回 ErrDisabled，节点将视自己为非公网可达。
type Static string

var _ pkgif.IPDiscoverer = Static("")

// Discover 返回固定地址
func (s Static) Discover(context.Context) (string, error) {
	if s == "" {
		return "", ErrDisabled
	}
	return string(s), nil
}
