package handshake

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-peerflood/config"
	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/util/addrutil"
	"github.com/dep2p/go-peerflood/internal/util/logger"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
	"github.com/dep2p/go-peerflood/pkg/protocol"
	"github.com/dep2p/go-peerflood/pkg/types"
)

var log = logger.Logger("protocol/handshake")

// 确保实现接口
var _ pkgif.HandshakeHandler = (*Service)(nil)

// Config 握手配置
type Config struct {
	IntroduceFriends     int
	IntroduceBestFriends int
	DialConcurrency      int
	Seed                 int64
}

// ConfigFromUnified 从统一配置创建握手配置
func ConfigFromUnified(cfg *config.Config) Config {
	fc := config.DefaultFloodConfig()
	if cfg != nil {
		fc = cfg.Flood
	}
	return Config{
		IntroduceFriends:     fc.IntroduceFriends,
		IntroduceBestFriends: fc.IntroduceBestFriends,
		DialConcurrency:      fc.IntroduceDialConcurrency,
		Seed:                 fc.Seed,
	}
}

// Service 握手服务
type Service struct {
	cfg     Config
	local   pkgif.Local
	dialer  pkgif.Dialer
	store   *peerstore.Store
	metrics *metrics.Metrics
	sampler *Sampler

	joined pkgif.Emitter
	left   pkgif.Emitter
}

// NewService 创建握手服务
func NewService(cfg Config, local pkgif.Local, dialer pkgif.Dialer, store *peerstore.Store,
	bus pkgif.EventBus, m *metrics.Metrics) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	joined, err := bus.Emitter(new(types.EvtPeerJoined))
	if err != nil {
		return nil, err
	}
	left, err := bus.Emitter(new(types.EvtPeerLeft))
	if err != nil {
		_ = joined.Close()
		return nil, err
	}
	if cfg.DialConcurrency <= 0 {
		cfg.DialConcurrency = 1
	}
	return &Service{
		cfg:     cfg,
		local:   local,
		dialer:  dialer,
		store:   store,
		metrics: m,
		sampler: NewSampler(cfg.Seed),
		joined:  joined,
		left:    left,
	}, nil
}

// Close 释放事件发射器
func (s *Service) Close() error {
	return multierr.Append(s.joined.Close(), s.left.Close())
}

// ============================================================================
//                              问候
// ============================================================================

// Greet 在新连接上发送 helo
//
// to 为观察到的对端主机（不含端口），对端据此判断自己是否可见。
func (s *Service) Greet(conn pkgif.Conn) error {
	local := s.local.LocalID()
	if local == "" {
		return ErrNotListening
	}
	msg := &protocol.Helo{
		From:     local,
		To:       addrutil.Host(conn.RemoteAddr()),
		PublicIP: s.local.IsPublic(),
	}
	return s.send(conn, msg)
}

// HandleHelo 登记对端，回送介绍并发出 EvtPeerJoined
func (s *Service) HandleHelo(_ context.Context, conn pkgif.Conn, msg *protocol.Helo) error {
	local := s.local.LocalID()
	visible := msg.To != "" && msg.To == addrutil.Host(local)

	reg, err := s.store.Register(msg.From, conn, msg.PublicIP, visible)
	if err != nil {
		return err
	}
	s.metrics.SetFriends(s.store.Count())

	// 同一连接改换 PeerID，旧身份视为离开
	if reg.Displaced != "" {
		log.Info("连接改换身份", "old", reg.Displaced, "new", msg.From, "conn", conn.ID())
		if err := s.left.Emit(types.EvtPeerLeft{PeerID: reg.Displaced}); err != nil {
			log.Debug("发出离开事件失败", "err", err)
		}
	}

	log.Info("新邻居",
		"peer", msg.From,
		"conn", conn.ID(),
		"public", msg.PublicIP,
		"visible", visible,
		"replaced", reg.Replaced)

	intro := &protocol.Introduce{
		From:      local,
		MyFriends: s.Introductions(msg.From),
	}
	if err := s.send(conn, intro); err != nil {
		log.Debug("发送介绍失败", "peer", msg.From, "err", err)
	}

	return s.joined.Emit(types.EvtPeerJoined{PeerID: msg.From, Public: msg.PublicIP})
}

// Introductions 选取介绍给 exclude 的邻居地址
//
// 最多 IntroduceFriends 个普通邻居加 IntroduceBestFriends 个公网邻居，
// 结果去重且不含 exclude。
func (s *Service) Introductions(exclude string) []string {
	pick := func(fs []peerstore.Friend, n int) []string {
		ids := make([]string, 0, len(fs))
		for _, f := range fs {
			if f.PeerID != exclude {
				ids = append(ids, f.PeerID)
			}
		}
		return s.sampler.Sample(ids, n)
	}

	out := pick(s.store.Friends(), s.cfg.IntroduceFriends)
	seen := make(map[string]struct{}, len(out))
	for _, id := range out {
		seen[id] = struct{}{}
	}
	for _, id := range pick(s.store.BestFriends(), s.cfg.IntroduceBestFriends) {
		if _, dup := seen[id]; !dup {
			out = append(out, id)
			seen[id] = struct{}{}
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// ============================================================================
//                              介绍
// ============================================================================

// HandleIntroduce 拨号介绍中的候选地址
//
// 候选先排序去重；不可拨号的地址、本地地址与已连接地址被跳过。
// 拨号并发受 DialConcurrency 限制，失败只记录日志。
func (s *Service) HandleIntroduce(ctx context.Context, _ pkgif.Conn, msg *protocol.Introduce) error {
	candidates := Dedup(msg.MyFriends)
	local := s.local.LocalID()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DialConcurrency)

	for _, addr := range candidates {
		if !addrutil.IsDialAddr(addr) || addr == local || s.store.IsAlreadyConnected(addr) {
			continue
		}
		addr := addr
		g.Go(func() error {
			if err := s.dialer.Connect(ctx, addr); err != nil {
				log.Debug("拨号介绍的节点失败", "from", msg.From, "addr", addr, "err", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Dedup 排序并去除重复与空白地址
func Dedup(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (s *Service) send(conn pkgif.Conn, msg protocol.Message) error {
	kind := msg.Kind().String()
	if err := conn.Send(msg); err != nil {
		s.metrics.SendFailed(kind)
		return err
	}
	s.metrics.MessageSent(kind)
	return nil
}
