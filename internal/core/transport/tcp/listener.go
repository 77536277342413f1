package tcp

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/net/netutil"
)

// ============================================================================
//                              Listener 实现
// ============================================================================

// Listener TCP 监听器
type Listener struct {
	listener net.Listener
	addr     *net.TCPAddr
	cfg      Config
	closed   atomic.Bool
}

// NewListener 创建 TCP 监听器
//
// cfg.MaxInbound > 0 时同时存在的入站连接数受限，超出的连接在内核队列中等待。
func NewListener(ctx context.Context, addr string, cfg Config) (*Listener, error) {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("监听失败: %w", err)
	}

	// 获取实际监听地址（端口可能是 0）
	tcpAddr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		_ = l.Close()
		return nil, fmt.Errorf("不是 TCP 监听器")
	}

	if cfg.MaxInbound > 0 {
		l = netutil.LimitListener(l, cfg.MaxInbound)
	}

	return &Listener{
		listener: l,
		addr:     tcpAddr,
		cfg:      cfg,
	}, nil
}

// Accept 接受连接
func (l *Listener) Accept() (*Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		if l.closed.Load() {
			return nil, ErrTransportClosed
		}
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return NewConn(conn, l.cfg), nil
}

// Addr 返回实际监听地址
func (l *Listener) Addr() *net.TCPAddr {
	return l.addr
}

// Close 关闭监听器
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.listener.Close()
}

// IsClosed 检查是否已关闭
func (l *Listener) IsClosed() bool {
	return l.closed.Load()
}
