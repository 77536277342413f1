package peerflood

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-peerflood/internal/core/host"
	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/protocol/flood"
	"github.com/dep2p/go-peerflood/internal/util/logger"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

var log = logger.Logger("peerflood")

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 10 * time.Second
)

// Node 洪泛搜索节点
//
// Node 是用户与覆盖网络交互的主入口，聚合了主机、状态存储与协议服务。
// 使用顺序为 New → Start → Listen → Connect/Search → Close。
type Node struct {
	app  *fx.App
	opts *options

	// 由 Fx 注入
	host    *host.Host
	store   *peerstore.Store
	flood   *flood.Service
	bus     pkgif.EventBus
	metrics *metrics.Metrics

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建节点，不会启动任何网络活动
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	if err := o.apply(opts...); err != nil {
		return nil, fmt.Errorf("apply option: %w", err)
	}

	n := &Node{opts: o}
	app, err := buildFxApp(o, n)
	if err != nil {
		return nil, err
	}
	n.app = app
	return n, nil
}

// Start 启动节点组件（存活检测循环等）
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		log.Error("节点启动失败", "err", err)
		return fmt.Errorf("start failed: %w", err)
	}
	n.started = true
	log.Debug("节点已启动")
	return nil
}

func (n *Node) ready() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNodeClosed
	}
	if !n.started {
		return ErrNotStarted
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              网络
// ════════════════════════════════════════════════════════════════════════════

// Listen 绑定 addr 并确定本地 PeerID，addr 为空时使用配置的监听地址
//
// 公网地址查询失败时节点视自己为非公网可达。成功后发出 EvtListening。
func (n *Node) Listen(ctx context.Context, addr string) error {
	if err := n.ready(); err != nil {
		return err
	}
	return n.host.Listen(ctx, addr)
}

// Connect 拨号种子节点
//
// 返回拨号错误；对端的问候到达后发出 EvtPeerJoined。
func (n *Node) Connect(ctx context.Context, addr string) error {
	if err := n.ready(); err != nil {
		return err
	}
	return n.host.Connect(ctx, addr)
}

// ID 返回本地 PeerID，监听前为空
func (n *Node) ID() string {
	return n.host.LocalID()
}

// IsPublic 返回本地节点是否公网可达
func (n *Node) IsPublic() bool {
	return n.host.IsPublic()
}

// Friends 返回当前邻居的 PeerID，按字典序
func (n *Node) Friends() []string {
	return peerIDs(n.store.Friends())
}

// BestFriends 返回公网可达邻居的 PeerID，按字典序
func (n *Node) BestFriends() []string {
	return peerIDs(n.store.BestFriends())
}

func peerIDs(friends []peerstore.Friend) []string {
	ids := make([]string, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, f.PeerID)
	}
	return ids
}

// ════════════════════════════════════════════════════════════════════════════
//                              搜索
// ════════════════════════════════════════════════════════════════════════════

// SetQuery 安装本地查询函数
func (n *Node) SetQuery(fn QueryFunc) {
	n.flood.SetQuery(fn)
}

// UnsetQuery 清除本地查询函数
func (n *Node) UnsetQuery() {
	n.flood.UnsetQuery()
}

// Search 向所有邻居发起搜索，每个命中产生一个 EvtResult
func (n *Node) Search(id string) error {
	if err := n.ready(); err != nil {
		return err
	}
	return n.flood.Search(id)
}

// SearchWithTTL 以指定 ttl 发起搜索，ttl 取值 0..10
func (n *Node) SearchWithTTL(id string, ttl int) error {
	if err := n.ready(); err != nil {
		return err
	}
	return n.flood.SearchWithTTL(id, ttl)
}

// ════════════════════════════════════════════════════════════════════════════
//                              观察
// ════════════════════════════════════════════════════════════════════════════

// Subscribe 订阅一种或多种事件，多种事件汇入同一通道
//
//	sub, err := node.Subscribe(new(peerflood.EvtResult), new(peerflood.EvtPeerLeft))
func (n *Node) Subscribe(evtTypes ...any) (Subscription, error) {
	switch len(evtTypes) {
	case 0:
		return nil, ErrNoEventType
	case 1:
		return n.bus.Subscribe(evtTypes[0])
	default:
		return n.bus.Subscribe(evtTypes)
	}
}

// Metrics 返回节点指标
func (n *Node) Metrics() prometheus.Gatherer {
	return n.metrics.Registry()
}

// ════════════════════════════════════════════════════════════════════════════
//                              关闭
// ════════════════════════════════════════════════════════════════════════════

// Close 关闭节点
//
// 先向所有邻居发送 seeya 并关闭连接，再停止其余组件。重复调用是安全的。
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	started := n.started
	n.mu.Unlock()

	log.Info("正在关闭节点", "peerID", n.host.LocalID())

	err := n.host.Close()
	if started {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err = multierr.Append(err, n.app.Stop(ctx))
	}
	return err
}
