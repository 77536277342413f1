package peerstore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-peerflood/internal/util/logger"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
	"github.com/dep2p/go-peerflood/pkg/protocol"
)

var log = logger.Logger("peerstore")

// ============================================================================
//                              数据类型
// ============================================================================

// Friend 邻居条目快照
type Friend struct {
	// PeerID 对端自报的 host:port
	PeerID string

	// Conn 当前连接
	Conn pkgif.Conn

	// LastSeen 最近一次存活时间
	LastSeen time.Time

	// Public 握手时对端声明公网可达
	Public bool

	// Visible 握手中对端观察到的本地主机与本地监听主机一致
	Visible bool
}

// Route 反向路径候选
type Route struct {
	Conn pkgif.Conn

	// RemainingHops 已走过的跳数加一，越大表示越直接
	RemainingHops int
}

// Observation 搜索观察结果
type Observation int

const (
	// ObserveFresh 首次见到，已登记搜索记录，应执行本地查询
	ObserveFresh Observation = iota

	// ObserveDuplicate 已有不小于当前 ttl 的记录，丢弃
	ObserveDuplicate

	// ObserveExhausted ttl 为 0，仅登记了反向路径
	ObserveExhausted
)

// String 返回可读名称
func (o Observation) String() string {
	switch o {
	case ObserveFresh:
		return "fresh"
	case ObserveDuplicate:
		return "duplicate"
	case ObserveExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("observation(%d)", int(o))
	}
}

type friendEntry struct {
	conn     pkgif.Conn
	lastSeen time.Time
	public   bool
	visible  bool
}

// ============================================================================
//                              Store
// ============================================================================

// Store 对等节点共享状态
type Store struct {
	mu    sync.RWMutex
	clock clock.Clock
	cfg   Config

	friends map[string]*friendEntry
	byConn  map[string]string // conn ID -> PeerID
	routes  map[string][]Route
	queries map[string]*lru.Cache[string, int]
}

// NewStore 创建状态存储，clk 为 nil 时使用系统时钟
func NewStore(cfg Config, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.QueryCacheSize <= 0 {
		cfg.QueryCacheSize = DefaultConfig().QueryCacheSize
	}
	return &Store{
		clock:   clk,
		cfg:     cfg,
		friends: make(map[string]*friendEntry),
		byConn:  make(map[string]string),
		routes:  make(map[string][]Route),
		queries: make(map[string]*lru.Cache[string, int]),
	}
}

// Registration 登记结果
type Registration struct {
	// Replaced 同一 PeerID 的旧条目被覆盖
	Replaced bool
	// Displaced 同一连接先前登记的其他 PeerID，已被删除；为空表示没有
	Displaced string
}

// Register 登记邻居
//
// 同一 PeerID 已存在时覆盖旧条目，旧连接不再映射到该 PeerID。
// 同一连接先前以其他 PeerID 登记时，旧 PeerID 的条目被删除并在
// Registration.Displaced 中返回。反向路径表中 peerID 的候选被重置为 {conn, 0}。
func (s *Store) Register(peerID string, conn pkgif.Conn, public, visible bool) (Registration, error) {
	var reg Registration
	if peerID == "" {
		return reg, ErrEmptyPeerID
	}
	if conn == nil {
		return reg, ErrNilConn
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, replaced := s.friends[peerID]
	if replaced && old.conn.ID() != conn.ID() {
		delete(s.byConn, old.conn.ID())
	}
	reg.Replaced = replaced
	if prev, ok := s.byConn[conn.ID()]; ok && prev != peerID {
		delete(s.friends, prev)
		delete(s.routes, prev)
		delete(s.queries, prev)
		reg.Displaced = prev
	}

	s.friends[peerID] = &friendEntry{
		conn:     conn,
		lastSeen: s.clock.Now(),
		public:   public,
		visible:  visible,
	}
	s.byConn[conn.ID()] = peerID
	s.routes[peerID] = []Route{{Conn: conn, RemainingHops: 0}}

	log.Debug("登记邻居", "peer", peerID, "conn", conn.ID(), "public", public,
		"replaced", replaced, "displaced", reg.Displaced)
	return reg, nil
}

// Unregister 注销邻居
//
// 删除邻居条目、其自身的反向路径与搜索记录，并从所有其他发起方的
// 反向路径中剥离该连接。返回被删除的条目。
func (s *Store) Unregister(peerID string) (Friend, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unregisterLocked(peerID)
}

// UnregisterConnection 按连接注销
//
// 连接未映射到任何邻居时仍会剥离其反向路径。
func (s *Store) UnregisterConnection(conn pkgif.Conn) (Friend, bool) {
	if conn == nil {
		return Friend{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if peerID, ok := s.byConn[conn.ID()]; ok {
		return s.unregisterLocked(peerID)
	}
	s.stripConnLocked(conn.ID())
	return Friend{}, false
}

func (s *Store) unregisterLocked(peerID string) (Friend, bool) {
	e, ok := s.friends[peerID]
	if !ok {
		return Friend{}, false
	}

	delete(s.friends, peerID)
	delete(s.byConn, e.conn.ID())
	delete(s.routes, peerID)
	delete(s.queries, peerID)
	s.stripConnLocked(e.conn.ID())

	log.Debug("注销邻居", "peer", peerID, "conn", e.conn.ID())
	return snapshot(peerID, e), true
}

// stripConnLocked 从所有反向路径中删除指定连接
//
// 非邻居发起方的路径被剥离为空时，其搜索记录一并回收。
func (s *Store) stripConnLocked(connID string) {
	for originator, list := range s.routes {
		kept := list[:0]
		for _, r := range list {
			if r.Conn.ID() != connID {
				kept = append(kept, r)
			}
		}
		if len(kept) > 0 {
			s.routes[originator] = kept
			continue
		}
		delete(s.routes, originator)
		if _, friend := s.friends[originator]; !friend {
			delete(s.queries, originator)
		}
	}
}

// FindByConnection 按连接反查 PeerID
func (s *Store) FindByConnection(conn pkgif.Conn) (string, bool) {
	if conn == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	peerID, ok := s.byConn[conn.ID()]
	return peerID, ok
}

// IsAlreadyConnected 检查地址是否已是某个邻居的 PeerID 或连接对端地址
func (s *Store) IsAlreadyConnected(addr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.friends[addr]; ok {
		return true
	}
	for _, e := range s.friends {
		if e.conn.RemoteAddr() == addr {
			return true
		}
	}
	return false
}

// Touch 刷新邻居的存活时间
func (s *Store) Touch(peerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.friends[peerID]
	if !ok {
		return false
	}
	e.lastSeen = s.clock.Now()
	return true
}

// Friend 返回指定邻居快照
func (s *Store) Friend(peerID string) (Friend, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.friends[peerID]
	if !ok {
		return Friend{}, false
	}
	return snapshot(peerID, e), true
}

// Friends 返回全部邻居快照（按 PeerID 排序）
func (s *Store) Friends() []Friend {
	return s.collect(func(*friendEntry) bool { return true })
}

// BestFriends 返回公网可达的邻居快照（按 PeerID 排序）
func (s *Store) BestFriends() []Friend {
	return s.collect(func(e *friendEntry) bool { return e.public })
}

// Stale 返回最近存活时间早于 now-threshold 的邻居
func (s *Store) Stale(threshold time.Duration) []Friend {
	cutoff := s.clock.Now().Add(-threshold)
	return s.collect(func(e *friendEntry) bool { return e.lastSeen.Before(cutoff) })
}

// Count 返回邻居数与公网邻居数
func (s *Store) Count() (friends, best int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.friends {
		friends++
		if e.public {
			best++
		}
	}
	return friends, best
}

func (s *Store) collect(keep func(*friendEntry) bool) []Friend {
	s.mu.RLock()
	out := make([]Friend, 0, len(s.friends))
	for id, e := range s.friends {
		if keep(e) {
			out = append(out, snapshot(id, e))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].PeerID < out[j].PeerID })
	return out
}

func snapshot(peerID string, e *friendEntry) Friend {
	return Friend{
		PeerID:   peerID,
		Conn:     e.conn,
		LastSeen: e.lastSeen,
		Public:   e.public,
		Visible:  e.visible,
	}
}

// ============================================================================
//                              洪泛状态
// ============================================================================

// ObserveQuery 处理一次 whohas 观察
//
// 依次执行：去重检查（已有记录的 ttl >= 当前 ttl 则丢弃）、追加反向路径
// {via, MaxTTL-ttl+1}、ttl 为 0 时停止、登记搜索记录。整个过程是一个原子步骤。
// 同一连接在同一发起方下只保留跳数较大的一条候选。
func (s *Store) ObserveQuery(originator, id string, ttl int, via pkgif.Conn) Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache := s.queries[originator]
	if cache != nil {
		if seen, ok := cache.Peek(id); ok && seen >= ttl {
			return ObserveDuplicate
		}
	}

	if via != nil {
		s.addRouteLocked(originator, Route{Conn: via, RemainingHops: protocol.MaxTTL - ttl + 1})
	}

	if ttl == 0 {
		return ObserveExhausted
	}

	if cache == nil {
		// 容量已在 NewStore 中校正为正数
		cache, _ = lru.New[string, int](s.cfg.QueryCacheSize)
		s.queries[originator] = cache
	}
	cache.Add(id, ttl)
	return ObserveFresh
}

func (s *Store) addRouteLocked(originator string, r Route) {
	list := s.routes[originator]
	for i := range list {
		if list[i].Conn.ID() == r.Conn.ID() {
			if r.RemainingHops > list[i].RemainingHops {
				list[i].RemainingHops = r.RemainingHops
			}
			return
		}
	}
	s.routes[originator] = append(list, r)
}

// Route 选择回传到 originator 的连接
//
// 候选按 RemainingHops 降序排列，取第一个不是 exclude 的连接；
// 只有 exclude 一条候选时仍返回它。没有候选时返回 ErrNoRoute。
func (s *Store) Route(originator string, exclude pkgif.Conn) (pkgif.Conn, error) {
	routes := s.Routes(originator)
	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, originator)
	}
	if exclude != nil {
		for _, r := range routes {
			if r.Conn.ID() != exclude.ID() {
				return r.Conn, nil
			}
		}
	}
	return routes[0].Conn, nil
}

// Routes 返回 originator 的反向路径快照（按 RemainingHops 降序）
func (s *Store) Routes(originator string) []Route {
	s.mu.RLock()
	list := append([]Route(nil), s.routes[originator]...)
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].RemainingHops > list[j].RemainingHops
	})
	return list
}

// QueryTTL 返回 (originator, id) 的搜索记录
func (s *Store) QueryTTL(originator, id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cache := s.queries[originator]
	if cache == nil {
		return 0, false
	}
	return cache.Peek(id)
}

// Originators 返回持有反向路径的发起方数量
func (s *Store) Originators() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.routes)
}
