// Package testutil 提供测试辅助工具
package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
	"github.com/dep2p/go-peerflood/pkg/protocol"
)

var _ pkgif.Conn = (*MockConn)(nil)

// MockConn 记录发送消息的内存连接
//
// Send 在 Close 之后或 SendErr 非空时返回错误。
type MockConn struct {
	id     string
	remote string

	mu      sync.Mutex
	sent    []protocol.Message
	sendErr error
	closed  atomic.Bool
}

// NewMockConn 创建 mock 连接
func NewMockConn(remote string) *MockConn {
	return &MockConn{id: uuid.NewString(), remote: remote}
}

// ID 返回连接标识
func (c *MockConn) ID() string { return c.id }

// RemoteAddr 返回对端地址
func (c *MockConn) RemoteAddr() string { return c.remote }

// Send 记录消息
func (c *MockConn) Send(msg protocol.Message) error {
	if c.closed.Load() {
		return ErrMockClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

// Close 标记关闭
func (c *MockConn) Close() error {
	c.closed.Store(true)
	return nil
}

// IsClosed 是否已关闭
func (c *MockConn) IsClosed() bool { return c.closed.Load() }

// SetSendErr 设置 Send 返回的错误
func (c *MockConn) SetSendErr(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// Sent 返回已发送消息的副本
func (c *MockConn) Sent() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.sent...)
}

// SentOf 返回指定类型的已发送消息
func (c *MockConn) SentOf(kind protocol.Kind) []protocol.Message {
	var out []protocol.Message
	for _, m := range c.Sent() {
		if m.Kind() == kind {
			out = append(out, m)
		}
	}
	return out
}

// Reset 清空已发送消息
func (c *MockConn) Reset() {
	c.mu.Lock()
	c.sent = nil
	c.mu.Unlock()
}
