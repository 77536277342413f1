package host

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerflood/config"
	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/core/transport/tcp"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

// Params Host 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Transport  *tcp.Transport
	Store      *peerstore.Store
	EventBus   pkgif.EventBus
	Metrics    *metrics.Metrics   `optional:"true"`
	Discoverer pkgif.IPDiscoverer `optional:"true"`
}

// Output 模块输出
type Output struct {
	fx.Out

	Host         *Host
	Local        pkgif.Local
	Dialer       pkgif.Dialer
	Disconnector pkgif.Disconnector
}

// ProvideHost 从 fx 依赖创建 Host
func ProvideHost(p Params) (Output, error) {
	h, err := New(
		WithConfig(ConfigFromUnified(p.UnifiedCfg)),
		WithTransport(p.Transport),
		WithStore(p.Store),
		WithEventBus(p.EventBus),
		WithMetrics(p.Metrics),
		WithDiscoverer(p.Discoverer),
	)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Host:         h,
		Local:        h,
		Dialer:       h,
		Disconnector: h,
	}, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("host",
		fx.Provide(ProvideHost),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, h *Host) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return h.Close()
		},
	})
}
