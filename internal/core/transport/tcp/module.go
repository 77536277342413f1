package tcp

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-peerflood/config"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Transport *Transport
}

// ProvideTransport 提供 TCP 传输层
func ProvideTransport(input ModuleInput) ModuleOutput {
	return ModuleOutput{
		Transport: NewTransport(ConfigFromUnified(input.Config)),
	}
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("transport/tcp",
		fx.Provide(ProvideTransport),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, t *Transport) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return t.Close()
		},
	})
}
