package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
)

// DefaultTimeout 等待事件的默认超时
const DefaultTimeout = 5 * time.Second

// WaitEvent 从订阅中等待一个 T 类型的事件，其他类型的事件被跳过
func WaitEvent[T any](t testing.TB, sub pkgif.Subscription, timeout time.Duration) T {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-sub.Out():
			require.True(t, ok, "订阅已关闭")
			if v, ok := ev.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("等待事件 %T 超时", zero)
			return zero
		}
	}
}

// NoEvent 断言在 wait 内没有收到 T 类型的事件
func NoEvent[T any](t testing.TB, sub pkgif.Subscription, wait time.Duration) {
	t.Helper()

	deadline := time.After(wait)
	for {
		select {
		case ev, ok := <-sub.Out():
			if !ok {
				return
			}
			if v, ok := ev.(T); ok {
				t.Fatalf("收到意外事件 %T: %+v", v, v)
			}
		case <-deadline:
			return
		}
	}
}
