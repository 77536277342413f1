package peerflood

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-peerflood/config"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config *config.Config

	// 测试注入
	clock      clock.Clock
	discoverer pkgif.IPDiscoverer

	runtimeMetrics bool
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置选项
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整配置替换默认配置
//
// 应放在其他选项之前，之后的选项在其基础上修改。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithListenAddr 设置 Listen 传空串时使用的地址
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		o.config.Transport.ListenAddr = addr
		return nil
	}
}

// WithAdvertiseAddr 显式指定对外地址（即本地 PeerID）
func WithAdvertiseAddr(addr string) Option {
	return func(o *options) error {
		o.config.NAT.AdvertiseAddr = addr
		return nil
	}
}

// WithKnownPeers 设置监听后拨号的种子节点
func WithKnownPeers(addrs ...string) Option {
	return func(o *options) error {
		o.config.KnownPeers = append([]string(nil), addrs...)
		return nil
	}
}

// WithPublicIPCheck 启用或关闭公网地址自检
func WithPublicIPCheck(enable bool) Option {
	return func(o *options) error {
		o.config.NAT.EnablePublicIPCheck = enable
		return nil
	}
}

// WithIntroductions 设置每次介绍携带的普通邻居与公网邻居数量
func WithIntroductions(friends, bestFriends int) Option {
	return func(o *options) error {
		o.config.Flood.IntroduceFriends = friends
		o.config.Flood.IntroduceBestFriends = bestFriends
		return nil
	}
}

// WithSeed 设置邻居抽样的随机种子
func WithSeed(seed int64) Option {
	return func(o *options) error {
		o.config.Flood.Seed = seed
		return nil
	}
}

// WithRuntimeMetrics 在指标中加入 Go 运行时与进程采集器
func WithRuntimeMetrics() Option {
	return func(o *options) error {
		o.runtimeMetrics = true
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              注入选项
// ════════════════════════════════════════════════════════════════════════════

// WithClock 替换时钟，测试中配合 clock.NewMock 使用
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithDiscoverer 替换外部地址查询
func WithDiscoverer(d pkgif.IPDiscoverer) Option {
	return func(o *options) error {
		o.discoverer = d
		return nil
	}
}
