package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
)

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport TCP 传输层
//
// 负责监听与拨号，并跟踪自己创建的监听器，Close 时统一关闭。
type Transport struct {
	cfg Config

	listeners   map[string]*Listener
	listenersMu sync.Mutex

	closed atomic.Bool
}

// NewTransport 创建 TCP 传输层
func NewTransport(cfg Config) *Transport {
	return &Transport{
		cfg:       cfg,
		listeners: make(map[string]*Listener),
	}
}

// Config 返回传输配置
func (t *Transport) Config() Config {
	return t.cfg
}

// Dial 建立出站连接
func (t *Transport) Dial(ctx context.Context, addr string) (*Conn, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	dialer := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("连接 %s 失败: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	log.Debug("出站连接建立", "remote", addr)
	return NewConn(conn, t.cfg), nil
}

// Listen 监听入站连接
func (t *Transport) Listen(ctx context.Context, addr string) (*Listener, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	l, err := NewListener(ctx, addr, t.cfg)
	if err != nil {
		return nil, err
	}

	t.listenersMu.Lock()
	t.listeners[l.Addr().String()] = l
	t.listenersMu.Unlock()

	log.Info("开始监听", "addr", l.Addr().String(), "maxInbound", t.cfg.MaxInbound)
	return l, nil
}

// Close 关闭传输层及其所有监听器
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()

	var err error
	for addr, l := range t.listeners {
		err = multierr.Append(err, l.Close())
		delete(t.listeners, addr)
	}
	return err
}

// IsClosed 检查是否已关闭
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}
