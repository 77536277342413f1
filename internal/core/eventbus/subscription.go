package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

// ============================================================================
// Subscription 实现
// ============================================================================

// Subscription 订阅
type Subscription struct {
	bus       *Bus
	types     []reflect.Type
	out       chan interface{}
	closeOnce sync.Once
}

var _ pkgif.Subscription = (*Subscription)(nil)

// Out 返回事件通道，Close 后通道被关闭
func (s *Subscription) Out() <-chan interface{} {
	return s.out
}

// Close 取消订阅，可并发多次调用
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.bus.removeSub(s)
	})
	return nil
}

// ============================================================================
// Emitter 实现
// ============================================================================

// Emitter 事件发射器
type Emitter struct {
	bus       *Bus
	typ       reflect.Type
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ pkgif.Emitter = (*Emitter)(nil)

// Emit 发射事件，事件类型必须与发射器类型一致
func (e *Emitter) Emit(event interface{}) error {
	if e.closed.Load() {
		return ErrEmitterClosed
	}
	if typ := reflect.TypeOf(event); typ != e.typ {
		return fmt.Errorf("%w: emitter for %v got %v", ErrInvalidEventType, e.typ, typ)
	}

	e.bus.emit(e.typ, event)
	return nil
}

// Close 关闭发射器
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)

		e.bus.mu.Lock()
		defer e.bus.mu.Unlock()
		if n, ok := e.bus.nodes[e.typ]; ok {
			n.nEmitters--
			e.bus.dropNodeLocked(n)
		}
	})
	return nil
}
