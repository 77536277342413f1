package peerflood

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-peerflood/internal/core/eventbus"
	"github.com/dep2p/go-peerflood/internal/core/host"
	"github.com/dep2p/go-peerflood/internal/core/metrics"
	nathttp "github.com/dep2p/go-peerflood/internal/core/nat/http"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/core/transport/tcp"
	"github.com/dep2p/go-peerflood/internal/protocol/flood"
	"github.com/dep2p/go-peerflood/internal/protocol/handshake"
	"github.com/dep2p/go-peerflood/internal/protocol/liveness"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. Core Layer: EventBus → Metrics → Peerstore → Transport → NAT → Host
//  2. Protocol Layer: Handshake → Flood → Liveness（向 Host 注册处理器）
//
// 停止时按相反顺序执行 OnStop，Host 最后关闭。
func buildFxApp(opts *options, node *Node) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := opts.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(opts.config),

		eventbus.Module(),
		metrics.Module,
		peerstore.Module(),
		tcp.Module(),
	}

	if opts.clock != nil {
		clk := opts.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}

	// 外部地址查询：注入优先，否则按配置使用 HTTP 服务
	if opts.discoverer != nil {
		d := opts.discoverer
		modules = append(modules, fx.Provide(func() pkgif.IPDiscoverer { return d }))
	} else {
		modules = append(modules, nathttp.Module())
	}

	modules = append(modules, host.Module())

	// ════════════════════════════════════════════════════════════════════════
	// 3. 协议层
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		handshake.Module(),
		flood.Module(),
		liveness.Module(),
	)

	if opts.runtimeMetrics {
		modules = append(modules, fx.Invoke(func(m *metrics.Metrics) {
			m.WithRuntimeCollectors()
		}))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 注入到 Node
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		fx.Populate(
			&node.host,
			&node.store,
			&node.flood,
			&node.bus,
			&node.metrics,
		),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return app, nil
}
