package flood

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/multierr"

	"github.com/dep2p/go-peerflood/config"
	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/util/logger"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
	"github.com/dep2p/go-peerflood/pkg/protocol"
	"github.com/dep2p/go-peerflood/pkg/types"
)

var log = logger.Logger("protocol/flood")

// 确保实现接口
var _ pkgif.FloodHandler = (*Service)(nil)

// QueryFunc 本地查询函数
//
// 返回 ok 为 true 表示命中，payload 会被编码为 JSON 回送给发起方。
// payload 为 nil 时回送空对象 {}。
type QueryFunc func(id string) (payload any, ok bool)

// emptyPayload 命中但没有载荷时的应答内容
var emptyPayload = json.RawMessage("{}")

// Config 洪泛配置
type Config struct {
	ReplyCacheSize int
	ReplyCacheTTL  time.Duration
}

// ConfigFromUnified 从统一配置创建洪泛配置
func ConfigFromUnified(cfg *config.Config) Config {
	fc := config.DefaultFloodConfig()
	if cfg != nil {
		fc = cfg.Flood
	}
	return Config{
		ReplyCacheSize: fc.ReplyCacheSize,
		ReplyCacheTTL:  fc.ReplyCacheTTL.Duration(),
	}
}

// replyKey 应答去重键
type replyKey struct {
	from, to, id string
}

// Service 洪泛搜索服务
type Service struct {
	local   pkgif.Local
	store   *peerstore.Store
	metrics *metrics.Metrics

	query atomic.Pointer[QueryFunc]

	// repliesMu 保证检查与登记是一步
	repliesMu sync.Mutex
	replies   *expirable.LRU[replyKey, struct{}]

	searchEmitter pkgif.Emitter
	resultEmitter pkgif.Emitter
}

// NewService 创建洪泛服务
func NewService(cfg Config, local pkgif.Local, store *peerstore.Store, bus pkgif.EventBus, m *metrics.Metrics) (*Service, error) {
	if cfg.ReplyCacheSize <= 0 {
		cfg.ReplyCacheSize = config.DefaultFloodConfig().ReplyCacheSize
	}
	if cfg.ReplyCacheTTL <= 0 {
		cfg.ReplyCacheTTL = config.DefaultFloodConfig().ReplyCacheTTL.Duration()
	}

	searchEmitter, err := bus.Emitter(new(types.EvtSearch))
	if err != nil {
		return nil, err
	}
	resultEmitter, err := bus.Emitter(new(types.EvtResult))
	if err != nil {
		_ = searchEmitter.Close()
		return nil, err
	}

	return &Service{
		local:         local,
		store:         store,
		metrics:       m,
		replies:       expirable.NewLRU[replyKey, struct{}](cfg.ReplyCacheSize, nil, cfg.ReplyCacheTTL),
		searchEmitter: searchEmitter,
		resultEmitter: resultEmitter,
	}, nil
}

// Close 释放事件发射器
func (s *Service) Close() error {
	return multierr.Combine(s.searchEmitter.Close(), s.resultEmitter.Close())
}

// SetQuery 安装本地查询函数
func (s *Service) SetQuery(fn QueryFunc) {
	if fn == nil {
		s.query.Store(nil)
		return
	}
	s.query.Store(&fn)
}

// UnsetQuery 清除本地查询函数，之后所有搜索都视为未命中
func (s *Service) UnsetQuery() {
	s.query.Store(nil)
}

// ============================================================================
//                              发起搜索
// ============================================================================

// Search 以最大 ttl 发起搜索
func (s *Service) Search(id string) error {
	return s.SearchWithTTL(id, protocol.MaxTTL)
}

// SearchWithTTL 以指定 ttl 发起搜索
//
// 本节点针对 id 的应答去重记录被清除，重复搜索同一 id 会再次收到结果。
// 返回成功入队的邻居数为 0 不视为错误。
func (s *Service) SearchWithTTL(id string, ttl int) error {
	if id == "" {
		return ErrEmptySearchID
	}
	if ttl < 0 || ttl > protocol.MaxTTL {
		return fmt.Errorf("%w: %d", ErrInvalidTTL, ttl)
	}
	local := s.local.LocalID()
	if local == "" {
		return ErrNotListening
	}

	s.forgetReplies(local, id)

	msg := &protocol.WhoHas{From: local, Hop: local, ID: id, TTL: ttl}
	n := s.broadcast(msg, func(peerstore.Friend) bool { return true })

	log.Debug("发起搜索", "id", id, "ttl", ttl, "friends", n)
	return nil
}

// forgetReplies 清除发往 to 的 id 应答记录
func (s *Service) forgetReplies(to, id string) {
	s.repliesMu.Lock()
	defer s.repliesMu.Unlock()

	for _, k := range s.replies.Keys() {
		if k.to == to && k.id == id {
			s.replies.Remove(k)
		}
	}
}

// ============================================================================
//                              whohas
// ============================================================================

// HandleWhoHas 处理搜索请求
func (s *Service) HandleWhoHas(_ context.Context, conn pkgif.Conn, msg *protocol.WhoHas) error {
	local := s.local.LocalID()
	if msg.From == local {
		s.metrics.FloodDropped(metrics.DropLoopback)
		return nil
	}

	switch s.store.ObserveQuery(msg.From, msg.ID, msg.TTL, conn) {
	case peerstore.ObserveDuplicate:
		s.metrics.FloodDropped(metrics.DropDuplicate)
		return nil
	case peerstore.ObserveExhausted:
		s.metrics.FloodDropped(metrics.DropExhausted)
		return nil
	}

	// 被接受的新波次重新允许经过本节点的应答
	s.forgetReplies(msg.From, msg.ID)

	if err := s.searchEmitter.Emit(types.EvtSearch{ID: msg.ID, Originator: msg.From, TTL: msg.TTL}); err != nil {
		log.Debug("发出搜索事件失败", "err", err)
	}

	payload, hit, err := s.runQuery(msg.ID)
	if err != nil {
		return err
	}
	if hit {
		log.Debug("本地命中", "id", msg.ID, "originator", msg.From)
		reply := &protocol.TellTo{From: local, To: msg.From, ID: msg.ID, Payload: payload}
		return s.route(reply, nil)
	}

	fwd := msg.Forward(local)
	n := s.broadcast(fwd, func(f peerstore.Friend) bool {
		return f.PeerID != msg.Hop && f.Conn.ID() != conn.ID()
	})
	s.metrics.FloodForwarded(n)
	return nil
}

// runQuery 调用本地查询函数并编码结果
func (s *Service) runQuery(id string) (json.RawMessage, bool, error) {
	fnp := s.query.Load()
	if fnp == nil {
		s.metrics.Query(false)
		return nil, false, nil
	}

	result, ok := (*fnp)(id)
	s.metrics.Query(ok)
	if !ok {
		return nil, false, nil
	}

	if result == nil {
		return emptyPayload, true, nil
	}
	if raw, isRaw := result.(json.RawMessage); isRaw {
		if len(raw) == 0 {
			return emptyPayload, true, nil
		}
		if !json.Valid(raw) {
			return nil, false, fmt.Errorf("%w: invalid raw JSON", ErrPayload)
		}
		return raw, true, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	// 类型化的 nil 指针或映射编码为 null
	if string(raw) == "null" {
		return emptyPayload, true, nil
	}
	return raw, true, nil
}

// broadcast 发送给满足 keep 的邻居，返回成功入队的数量
//
// 邻居在发送途中断开时只丢弃这一份。
func (s *Service) broadcast(msg protocol.Message, keep func(peerstore.Friend) bool) int {
	kind := msg.Kind().String()
	n := 0
	for _, f := range s.store.Friends() {
		if !keep(f) {
			continue
		}
		if err := f.Conn.Send(msg); err != nil {
			s.metrics.SendFailed(kind)
			log.Debug("发送失败", "peer", f.PeerID, "kind", kind, "err", err)
			continue
		}
		s.metrics.MessageSent(kind)
		n++
	}
	return n
}

// ============================================================================
//                              tellto
// ============================================================================

// HandleTellTo 处理应答
func (s *Service) HandleTellTo(_ context.Context, conn pkgif.Conn, msg *protocol.TellTo) error {
	if !s.markReply(msg) {
		s.metrics.Reply(metrics.ReplyDuplicate)
		return nil
	}

	if msg.To != s.local.LocalID() {
		if err := s.route(msg, conn); err != nil {
			// 本份未送出，后续副本仍可尝试其他路径
			s.unmarkReply(msg)
			return err
		}
		return nil
	}

	s.metrics.Reply(metrics.ReplyDelivered)
	log.Debug("收到搜索结果", "id", msg.ID, "from", msg.From)
	return s.resultEmitter.Emit(types.EvtResult{ID: msg.ID, From: msg.From, Payload: msg.Payload})
}

// markReply 登记应答，已处理过时返回 false
func (s *Service) markReply(msg *protocol.TellTo) bool {
	key := replyKey{from: msg.From, to: msg.To, id: msg.ID}

	s.repliesMu.Lock()
	defer s.repliesMu.Unlock()

	if s.replies.Contains(key) {
		return false
	}
	s.replies.Add(key, struct{}{})
	return true
}

// unmarkReply 撤销 markReply 的登记
func (s *Service) unmarkReply(msg *protocol.TellTo) {
	key := replyKey{from: msg.From, to: msg.To, id: msg.ID}

	s.repliesMu.Lock()
	s.replies.Remove(key)
	s.repliesMu.Unlock()
}

// route 沿反向路径发送应答
func (s *Service) route(msg *protocol.TellTo, arrival pkgif.Conn) error {
	next, err := s.store.Route(msg.To, arrival)
	if err != nil {
		s.metrics.RouteFailure()
		log.Error("应答无法回传", "id", msg.ID, "to", msg.To, "from", msg.From, "err", err)
		return err
	}

	if err := next.Send(msg); err != nil {
		s.metrics.SendFailed(msg.Kind().String())
		return fmt.Errorf("send reply to %s: %w", msg.To, err)
	}
	s.metrics.MessageSent(msg.Kind().String())
	if arrival != nil {
		s.metrics.Reply(metrics.ReplyForwarded)
	}
	return nil
}

// IsRouteError 判断是否为路由错误
func IsRouteError(err error) bool {
	return errors.Is(err, peerstore.ErrNoRoute)
}
