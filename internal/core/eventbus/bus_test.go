package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

type evtA struct{ N int }
type evtB struct{ S string }

// recv 在超时内读取一个事件
func recv(t *testing.T, sub pkgif.Subscription) interface{} {
	t.Helper()
	select {
	case e := <-sub.Out():
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// ============================================================================
// 基础功能测试
// ============================================================================

// TestBus_EmitAndReceive 测试事件发射和接收
func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(evtA))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(evtA))
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(evtA{N: 42}))
	assert.Equal(t, evtA{N: 42}, recv(t, sub))
}

// TestBus_InvalidTypes 测试非法事件类型
func TestBus_InvalidTypes(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = bus.Subscribe(evtA{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	_, err = bus.Subscribe([]interface{}{})
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = bus.Emitter(evtA{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	em, err := bus.Emitter(new(evtA))
	require.NoError(t, err)
	assert.ErrorIs(t, em.Emit(evtB{}), ErrInvalidEventType)
}

// TestBus_MultiTypeOrdering 多类型订阅保持发射顺序
func TestBus_MultiTypeOrdering(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe([]interface{}{new(evtA), new(evtB), new(evtA)})
	require.NoError(t, err)
	defer sub.Close()

	emA, _ := bus.Emitter(new(evtA))
	emB, _ := bus.Emitter(new(evtB))

	require.NoError(t, emA.Emit(evtA{N: 1}))
	require.NoError(t, emB.Emit(evtB{S: "two"}))
	require.NoError(t, emA.Emit(evtA{N: 3}))

	assert.Equal(t, evtA{N: 1}, recv(t, sub))
	assert.Equal(t, evtB{S: "two"}, recv(t, sub))
	assert.Equal(t, evtA{N: 3}, recv(t, sub))
}

// TestBus_Stateful 有状态发射器为后来的订阅者补发
func TestBus_Stateful(t *testing.T) {
	bus := NewBus()

	em, err := bus.Emitter(new(evtA), Stateful())
	require.NoError(t, err)
	require.NoError(t, em.Emit(evtA{N: 7}))

	sub, err := bus.Subscribe(new(evtA))
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, evtA{N: 7}, recv(t, sub))
}

// TestBus_DropWhenFull 缓冲区满时丢弃而不阻塞
func TestBus_DropWhenFull(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(evtA), BufSize(1))
	require.NoError(t, err)
	defer sub.Close()

	em, _ := bus.Emitter(new(evtA))
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = em.Emit(evtA{N: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full subscriber")
	}
	assert.Equal(t, evtA{N: 0}, recv(t, sub))
}

// TestSubscription_Close 关闭后通道关闭且不再接收
func TestSubscription_Close(t *testing.T) {
	bus := NewBus()

	sub, _ := bus.Subscribe(new(evtA))
	em, _ := bus.Emitter(new(evtA))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Out()
	assert.False(t, ok)
	assert.NoError(t, em.Emit(evtA{N: 1}))
}

// TestEmitter_Close 关闭后发射返回错误
func TestEmitter_Close(t *testing.T) {
	bus := NewBus()

	em, _ := bus.Emitter(new(evtA))
	require.NoError(t, em.Close())
	assert.ErrorIs(t, em.Emit(evtA{}), ErrEmitterClosed)

	bus.mu.Lock()
	assert.Empty(t, bus.nodes)
	bus.mu.Unlock()
}

// ============================================================================
// 并发测试
// ============================================================================

// TestConcurrent_EmitAndClose 并发发射与取消订阅不崩溃
func TestConcurrent_EmitAndClose(t *testing.T) {
	bus := NewBus()
	em, _ := bus.Emitter(new(evtA))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		sub, _ := bus.Subscribe(new(evtA), BufSize(4))
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = em.Emit(evtA{N: j})
			}
		}()
		go func() {
			defer wg.Done()
			_ = sub.Close()
		}()
	}
	wg.Wait()
}

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_Provides 测试模块提供 EventBus
func TestModule_Provides(t *testing.T) {
	var bus pkgif.EventBus

	app := fxtest.New(t,
		Module(),
		fx.Populate(&bus),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, bus)
}
