package liveness

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-peerflood/config"
	"github.com/dep2p/go-peerflood/internal/core/host"
	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config       *config.Config `optional:"true"`
	Clock        clock.Clock    `optional:"true"`
	Local        pkgif.Local
	Store        *peerstore.Store
	Disconnector pkgif.Disconnector
	EventBus     pkgif.EventBus
	Metrics      *metrics.Metrics `optional:"true"`
}

// ProvideService 提供存活检测服务
func ProvideService(p Params) (*Service, error) {
	return New(p.Local, p.Store, p.Disconnector, p.EventBus, p.Metrics,
		FromUnified(p.Config), WithClock(p.Clock))
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("protocol/liveness",
		fx.Provide(ProvideService),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, h *host.Host, s *Service) {
	h.SetLivenessHandler(s)
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
}
