package host

import (
	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/core/transport/tcp"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

// Option Host 构造选项类型
type Option func(*Host) error

// WithConfig 设置配置
func WithConfig(cfg *Config) Option {
	return func(h *Host) error {
		if cfg != nil {
			h.config = cfg
		}
		return nil
	}
}

// WithTransport 设置 TCP 传输层
func WithTransport(t *tcp.Transport) Option {
	return func(h *Host) error {
		h.transport = t
		return nil
	}
}

// WithStore 设置状态存储
func WithStore(s *peerstore.Store) Option {
	return func(h *Host) error {
		h.store = s
		return nil
	}
}

// WithEventBus 设置 EventBus
func WithEventBus(eb pkgif.EventBus) Option {
	return func(h *Host) error {
		h.eventbus = eb
		return nil
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Host) error {
		h.metrics = m
		return nil
	}
}

// WithDiscoverer 设置外部地址查询
func WithDiscoverer(d pkgif.IPDiscoverer) Option {
	return func(h *Host) error {
		h.discoverer = d
		return nil
	}
}
