package liveness

import (
	"context"
	"sync"

	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/util/logger"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
	"github.com/dep2p/go-peerflood/pkg/protocol"
	"github.com/dep2p/go-peerflood/pkg/types"
)

var log = logger.Logger("protocol/liveness")

// 确保实现接口
var _ pkgif.LivenessHandler = (*Service)(nil)

// Service 存活检测服务
type Service struct {
	config  *Config
	local   pkgif.Local
	store   *peerstore.Store
	disconn pkgif.Disconnector
	metrics *metrics.Metrics

	pingEmitter pkgif.Emitter

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New 创建存活检测服务
func New(local pkgif.Local, store *peerstore.Store, disconn pkgif.Disconnector,
	bus pkgif.EventBus, m *metrics.Metrics, opts ...Option) (*Service, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	emitter, err := bus.Emitter(new(types.EvtPing))
	if err != nil {
		return nil, err
	}

	return &Service{
		config:      cfg,
		local:       local,
		store:       store,
		disconn:     disconn,
		metrics:     m,
		pingEmitter: emitter,
	}, nil
}

// Start 启动监控循环
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	// Fx OnStart 的 ctx 在返回后失效，循环使用独立的 ctx
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true

	go s.loop(ctx, s.done)

	log.Info("存活检测已启动",
		"interval", s.config.Interval,
		"threshold", s.config.Threshold)
	return nil
}

// Stop 停止监控循环
func (s *Service) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	log.Info("存活检测已停止")
	return nil
}

// Close 停止循环并释放事件发射器
func (s *Service) Close() error {
	_ = s.Stop(context.Background())
	return s.pingEmitter.Close()
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := s.config.Clock.Ticker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check()
		}
	}
}

// Check 执行一次检查，返回发出的 ping 数
func (s *Service) Check() int {
	local := s.local.LocalID()
	if local == "" {
		return 0
	}

	n := 0
	for _, f := range s.store.Stale(s.config.Threshold) {
		if err := s.send(f.Conn, &protocol.Ping{From: local}); err != nil {
			log.Debug("ping 发送失败", "peer", f.PeerID, "err", err)
			continue
		}
		n++
	}
	if n > 0 {
		log.Debug("探测静默邻居", "count", n)
	}
	return n
}

// ============================================================================
//                              消息处理
// ============================================================================

// HandlePing 发出 EvtPing 并回送 pong
func (s *Service) HandlePing(_ context.Context, conn pkgif.Conn, msg *protocol.Ping) error {
	if err := s.pingEmitter.Emit(types.EvtPing{From: msg.From}); err != nil {
		log.Debug("发出 ping 事件失败", "err", err)
	}

	local := s.local.LocalID()
	if local == "" {
		return ErrNotListening
	}
	return s.send(conn, &protocol.Pong{From: local})
}

// HandlePong 刷新对端存活时间
//
// 优先按连接反查对端，连接未登记时退回消息中的 from。
func (s *Service) HandlePong(_ context.Context, conn pkgif.Conn, msg *protocol.Pong) error {
	peerID, ok := s.store.FindByConnection(conn)
	if !ok {
		peerID = msg.From
	}
	if !s.store.Touch(peerID) {
		log.Debug("pong 来自未登记的节点", "from", msg.From)
	}
	return nil
}

// HandleSeeYa 确认离开的对端是否仍可达
func (s *Service) HandleSeeYa(_ context.Context, conn pkgif.Conn, msg *protocol.SeeYa) error {
	target := conn
	if f, ok := s.store.Friend(msg.From); ok {
		target = f.Conn
	}

	err := s.send(target, &protocol.Ping{From: s.local.LocalID()})
	if err != nil {
		log.Info("离开的邻居不可达，断开", "peer", msg.From, "err", err)
		s.disconn.Disconnect(msg.From)
		return nil
	}
	log.Debug("收到 seeya，已发送 ping 确认", "peer", msg.From)
	return nil
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
