package peerstore

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-peerflood/config"
)

// Params Store 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// Output 模块输出
type Output struct {
	fx.Out

	Store *Store
}

// ProvideStore 提供 Store
func ProvideStore(p Params) Output {
	return Output{Store: NewStore(ConfigFromUnified(p.UnifiedCfg), p.Clock)}
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("peerstore",
		fx.Provide(ProvideStore),
	)
}
