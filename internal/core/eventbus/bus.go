package eventbus

import (
	"errors"
	"reflect"
	"sync"

	"github.com/dep2p/go-peerflood/internal/util/logger"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

var log = logger.Logger("eventbus")

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrInvalidEventType 无效的事件类型
	ErrInvalidEventType = errors.New("invalid event type")
	// ErrNonPointerType 非指针类型
	ErrNonPointerType = errors.New("subscribe called with non-pointer type")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("emitter is closed")
)

// defaultBuffer 默认订阅缓冲区大小
const defaultBuffer = 64

// ============================================================================
// Bus 实现
// ============================================================================

// Bus 事件总线
type Bus struct {
	// mu 保护 nodes 及每个 node 的全部字段，发射期间持有
	mu    sync.Mutex
	nodes map[reflect.Type]*node
}

// node 单个事件类型的订阅状态
type node struct {
	typ       reflect.Type
	sinks     []*Subscription
	nEmitters int
	keepLast  bool
	last      interface{}
	dropCount int64
}

var _ pkgif.EventBus = (*Bus)(nil)

// NewBus 创建新的事件总线
func NewBus() *Bus {
	return &Bus{
		nodes: make(map[reflect.Type]*node),
	}
}

// Subscribe 订阅一种或多种事件
func (b *Bus) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	settings := &pkgif.SubscriptionSettings{Buffer: defaultBuffer}
	for _, opt := range opts {
		opt(settings)
	}
	if settings.Buffer < 0 {
		settings.Buffer = 0
	}

	types, err := elemTypes(eventType)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		bus:   b,
		types: types,
		out:   make(chan interface{}, settings.Buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, typ := range types {
		n := b.nodeLocked(typ)
		n.sinks = append(n.sinks, sub)

		// 有状态节点补发最后一次事件
		if n.keepLast && n.last != nil {
			select {
			case sub.out <- n.last:
			default:
			}
		}
	}
	return sub, nil
}

// Emitter 获取发射器
func (b *Bus) Emitter(eventType interface{}, opts ...pkgif.EmitterOpt) (pkgif.Emitter, error) {
	settings := &pkgif.EmitterSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.nodeLocked(typ)
	n.nEmitters++
	if settings.Stateful {
		n.keepLast = true
	}

	return &Emitter{bus: b, typ: typ}, nil
}

// ============================================================================
// 内部方法
// ============================================================================

// nodeLocked 获取或创建事件类型节点，调用方持有 b.mu
func (b *Bus) nodeLocked(typ reflect.Type) *node {
	n, ok := b.nodes[typ]
	if !ok {
		n = &node{typ: typ}
		b.nodes[typ] = n
	}
	return n
}

// dropNodeLocked 没有订阅者和发射器时删除节点，调用方持有 b.mu
func (b *Bus) dropNodeLocked(n *node) {
	if len(n.sinks) == 0 && n.nEmitters == 0 {
		delete(b.nodes, n.typ)
	}
}

// removeSub 从所有节点移除订阅
func (b *Bus) removeSub(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, typ := range sub.types {
		n, ok := b.nodes[typ]
		if !ok {
			continue
		}
		for i, s := range n.sinks {
			if s == sub {
				n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
				break
			}
		}
		b.dropNodeLocked(n)
	}

	close(sub.out)
}

// emit 发射事件到所有订阅者
func (b *Bus) emit(typ reflect.Type, event interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[typ]
	if !ok {
		return
	}
	if n.keepLast {
		n.last = event
	}

	for _, sub := range n.sinks {
		select {
		case sub.out <- event:
		default:
			n.dropCount++
			if n.dropCount%100 == 1 {
				log.Warn("慢消费者检测",
					"dropped", n.dropCount,
					"type", n.typ)
			}
		}
	}
}

// elemType 解析单个事件指针的元素类型
func elemType(eventType interface{}) (reflect.Type, error) {
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Ptr {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// elemTypes 解析事件指针或事件指针切片
func elemTypes(eventType interface{}) ([]reflect.Type, error) {
	list, ok := eventType.([]interface{})
	if !ok {
		typ, err := elemType(eventType)
		if err != nil {
			return nil, err
		}
		return []reflect.Type{typ}, nil
	}

	if len(list) == 0 {
		return nil, ErrInvalidEventType
	}
	types := make([]reflect.Type, 0, len(list))
	seen := make(map[reflect.Type]struct{}, len(list))
	for _, et := range list {
		typ, err := elemType(et)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[typ]; dup {
			continue
		}
		seen[typ] = struct{}{}
		types = append(types, typ)
	}
	return types, nil
}
