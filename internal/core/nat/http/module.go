package http

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerflood/config"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// Output 模块输出
type Output struct {
	fx.Out

	Discoverer pkgif.IPDiscoverer
}

// ProvideDiscoverer 按配置提供外部 IP 发现器
//
// 关闭公网自检时提供空的 Static，查询总是失败。
func ProvideDiscoverer(lc fx.Lifecycle, p Params) Output {
	cfg := config.DefaultNATConfig()
	if p.Config != nil {
		cfg = p.Config.NAT
	}
	if !cfg.EnablePublicIPCheck {
		return Output{Discoverer: Static("")}
	}

	d := NewDiscoverer(cfg.Services, cfg.Timeout.Duration())
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return d.Close()
		},
	})
	return Output{Discoverer: d}
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("nat.http",
		fx.Provide(ProvideDiscoverer),
	)
}
