package flood

import (
	"context"

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

	Config   *config.Config `optional:"true"`
	Local    pkgif.Local
	Store    *peerstore.Store
	EventBus pkgif.EventBus
	Metrics  *metrics.Metrics `optional:"true"`
}

// ProvideService 提供洪泛服务
func ProvideService(p Params) (*Service, error) {
	return NewService(ConfigFromUnified(p.Config), p.Local, p.Store, p.EventBus, p.Metrics)
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("protocol/flood",
		fx.Provide(ProvideService),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, h *host.Host, s *Service) {
	h.SetFloodHandler(s)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
}
