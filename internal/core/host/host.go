package host

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/core/transport/tcp"
	"github.com/dep2p/go-peerflood/internal/util/addrutil"
	"github.com/dep2p/go-peerflood/internal/util/logger"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
	"github.com/dep2p/go-peerflood/pkg/protocol"
	"github.com/dep2p/go-peerflood/pkg/types"
)

var log = logger.Logger("core/host")

// 确保实现接口
var (
	_ pkgif.Local        = (*Host)(nil)
	_ pkgif.Dialer       = (*Host)(nil)
	_ pkgif.Disconnector = (*Host)(nil)
)

// Host 节点主机
type Host struct {
	ctx       context.Context
	ctxCancel context.CancelFunc

	// 核心组件
	config     *Config
	transport  *tcp.Transport
	store      *peerstore.Store
	eventbus   pkgif.EventBus
	metrics    *metrics.Metrics
	discoverer pkgif.IPDiscoverer

	// 消息处理器
	handlersMu sync.RWMutex
	handshake  pkgif.HandshakeHandler
	flood      pkgif.FloodHandler
	liveness   pkgif.LivenessHandler

	// mu 保护以下字段
	mu       sync.RWMutex
	localID  string
	public   bool
	listener *tcp.Listener
	conns    map[string]*tcp.Conn // conn ID -> 连接（含尚未握手的）
	dialing  map[string]struct{}

	listeningEmitter pkgif.Emitter
	leftEmitter      pkgif.Emitter

	// 生命周期
	closed   atomic.Bool
	refCount sync.WaitGroup
}

// New 创建新的 Host
func New(opts ...Option) (*Host, error) {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Host{
		ctx:       ctx,
		ctxCancel: cancel,
		config:    DefaultConfig(),
		conns:     make(map[string]*tcp.Conn),
		dialing:   make(map[string]struct{}),
	}

	// 应用选项
	for _, opt := range opts {
		if err := opt(h); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := h.validate(); err != nil {
		cancel()
		return nil, err
	}

	var err error
	if h.listeningEmitter, err = h.eventbus.Emitter(new(types.EvtListening), pkgif.Stateful()); err != nil {
		cancel()
		return nil, err
	}
	if h.leftEmitter, err = h.eventbus.Emitter(new(types.EvtPeerLeft)); err != nil {
		_ = h.listeningEmitter.Close()
		cancel()
		return nil, err
	}

	return h, nil
}

func (h *Host) validate() error {
	if h.transport == nil {
		return ErrNilTransport
	}
	if h.store == nil {
		return ErrNilStore
	}
	if h.eventbus == nil {
		return ErrNilEventBus
	}
	return h.config.Validate()
}

// ============================================================================
//                              处理器注册
// ============================================================================

// SetHandshakeHandler 设置握手处理器
func (h *Host) SetHandshakeHandler(hs pkgif.HandshakeHandler) {
	h.handlersMu.Lock()
	h.handshake = hs
	h.handlersMu.Unlock()
}

// SetFloodHandler 设置洪泛处理器
func (h *Host) SetFloodHandler(f pkgif.FloodHandler) {
	h.handlersMu.Lock()
	h.flood = f
	h.handlersMu.Unlock()
}

// SetLivenessHandler 设置存活检测处理器
func (h *Host) SetLivenessHandler(l pkgif.LivenessHandler) {
	h.handlersMu.Lock()
	h.liveness = l
	h.handlersMu.Unlock()
}

func (h *Host) handlers() (pkgif.HandshakeHandler, pkgif.FloodHandler, pkgif.LivenessHandler) {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	return h.handshake, h.flood, h.liveness
}

// ============================================================================
//                              本地身份
// ============================================================================

// LocalID 返回本地 PeerID，监听前为空
func (h *Host) LocalID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.localID
}

// IsPublic 返回本地节点是否公网可达
func (h *Host) IsPublic() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.public
}

// ListenAddr 返回实际监听地址，监听前为空
func (h *Host) ListenAddr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Store 返回状态存储
func (h *Host) Store() *peerstore.Store {
	return h.store
}

// ============================================================================
//                              监听与拨号
// ============================================================================

// Listen 绑定监听地址并确定本地身份
//
// addr 为空时使用配置的 ListenAddr。外部地址查询失败不影响监听，
// 节点视自己为非公网可达。成功后发出 EvtListening 并拨号配置的种子节点。
func (h *Host) Listen(ctx context.Context, addr string) error {
	if h.closed.Load() {
		return ErrClosed
	}
	if addr == "" {
		addr = h.config.ListenAddr
	}
	listenHost, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}

	h.mu.RLock()
	listening := h.listener != nil
	h.mu.RUnlock()
	if listening {
		return ErrAlreadyListening
	}

	l, err := h.transport.Listen(ctx, addr)
	if err != nil {
		return err
	}

	externalIP := h.discoverExternalIP(ctx)
	localID, public := resolveIdentity(listenHost, l.Addr().Port, h.config.AdvertiseAddr, externalIP)

	h.mu.Lock()
	if h.listener != nil || h.closed.Load() {
		h.mu.Unlock()
		_ = l.Close()
		if h.closed.Load() {
			return ErrClosed
		}
		return ErrAlreadyListening
	}
	h.listener = l
	h.localID = localID
	h.public = public
	h.refCount.Add(1)
	seeding := len(h.config.KnownPeers) > 0
	if seeding {
		h.refCount.Add(1)
	}
	h.mu.Unlock()

	go h.acceptLoop(l)

	log.Info("节点开始监听",
		"peerID", localID,
		"addr", l.Addr().String(),
		"externalIP", externalIP,
		"addrType", addrutil.AddrType(localID),
		"public", public)

	if err := h.listeningEmitter.Emit(types.EvtListening{
		PeerID:     localID,
		ListenAddr: l.Addr().String(),
		Public:     public,
	}); err != nil {
		log.Debug("发出监听事件失败", "err", err)
	}

	if seeding {
		go h.connectKnownPeers()
	}
	return nil
}

// connectKnownPeers 依次拨号种子节点
func (h *Host) connectKnownPeers() {
	defer h.refCount.Done()
	for _, addr := range h.config.KnownPeers {
		if h.closed.Load() {
			return
		}
		if err := h.Connect(h.ctx, addr); err != nil {
			log.Warn("连接种子节点失败", "addr", addr, "err", err)
		}
	}
}

// Connect 拨号 addr 并发送问候
//
// 对端的 helo 到达后才会登记为邻居。已连接、正在拨号或拨号本地地址时返回错误。
func (h *Host) Connect(ctx context.Context, addr string) error {
	if h.closed.Load() {
		return ErrClosed
	}
	local := h.LocalID()
	if local == "" {
		return ErrNotListening
	}
	if !addrutil.IsDialAddr(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddr, addr)
	}
	if addr == local {
		return ErrSelfDial
	}
	if h.store.IsAlreadyConnected(addr) {
		return ErrAlreadyConnected
	}

	if err := h.beginDial(addr); err != nil {
		return err
	}
	defer h.endDial(addr)

	c, err := h.transport.Dial(ctx, addr)
	if err != nil {
		return err
	}
	return h.serve(c, metrics.DirOutbound)
}

// beginDial 登记进行中的拨号
func (h *Host) beginDial(addr string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.dialing[addr]; ok {
		return ErrDialInProgress
	}
	for _, c := range h.conns {
		if c.RemoteAddr() == addr {
			return ErrAlreadyConnected
		}
	}
	h.dialing[addr] = struct{}{}
	return nil
}

func (h *Host) endDial(addr string) {
	h.mu.Lock()
	delete(h.dialing, addr)
	h.mu.Unlock()
}

// Disconnect 关闭到 peerID 的连接并注销
func (h *Host) Disconnect(peerID string) {
	f, ok := h.store.Friend(peerID)
	if !ok {
		return
	}
	h.mu.RLock()
	c, ok := h.conns[f.Conn.ID()]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.teardown(c)
}

// Conns 返回当前连接数（含尚未握手的）
func (h *Host) Conns() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭 Host
//
// 先向所有邻居发送 seeya，再关闭监听器与全部连接，并等待后台任务结束。
func (h *Host) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil // 已关闭，幂等操作
	}

	log.Info("正在关闭 Host")

	if local := h.LocalID(); local != "" {
		for _, f := range h.store.Friends() {
			if err := f.Conn.Send(&protocol.SeeYa{From: local}); err != nil {
				h.metrics.SendFailed(protocol.CmdSeeYa)
				continue
			}
			h.metrics.MessageSent(protocol.CmdSeeYa)
		}
	}

	err := h.transport.Close()
	h.ctxCancel()

	h.mu.Lock()
	conns := make([]*tcp.Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		err = multierr.Append(err, c.Close())
	}

	// 等待所有后台任务完成
	h.refCount.Wait()

	err = multierr.Append(err, h.listeningEmitter.Close())
	err = multierr.Append(err, h.leftEmitter.Close())

	log.Info("Host 已关闭")
	return err
}

// Closed 返回 Host 是否已关闭
func (h *Host) Closed() bool {
	return h.closed.Load()
}
