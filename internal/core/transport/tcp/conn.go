package tcp

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-peerflood/internal/util/logger"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
	"github.com/dep2p/go-peerflood/pkg/protocol"
)

var log = logger.Logger("transport/tcp")

// 确保实现了接口
var _ pkgif.Conn = (*Conn)(nil)

// ============================================================================
//                              Conn 实现
// ============================================================================

// Conn 行分帧的 TCP 连接
//
// ReadMessage 只允许单个协程调用；Send 与 Close 可并发调用。
type Conn struct {
	conn   net.Conn
	id     string
	remote string
	cfg    Config

	reader *protocol.LineReader

	out       chan []byte
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error

	opened time.Time
}

// NewConn 包装 net.Conn 并启动写协程
func NewConn(conn net.Conn, cfg Config) *Conn {
	queue := cfg.SendQueueSize
	if queue <= 0 {
		queue = 1
	}
	c := &Conn{
		conn:    conn,
		id:      uuid.NewString(),
		remote:  conn.RemoteAddr().String(),
		cfg:     cfg,
		reader:  protocol.NewLineReader(conn, cfg.MaxLineSize),
		out:     make(chan []byte, queue),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		opened:  time.Now(),
	}
	go c.writeLoop()
	return c
}

// ID 返回连接唯一标识
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr 返回对端地址
func (c *Conn) RemoteAddr() string {
	return c.remote
}

// LocalAddr 返回本端地址
func (c *Conn) LocalAddr() string {
	return c.conn.LocalAddr().String()
}

// Opened 返回连接建立时间
func (c *Conn) Opened() time.Time {
	return c.opened
}

// IsClosed 检查是否已关闭
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Send 编码消息并放入发送队列
func (c *Conn) Send(msg protocol.Message) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	line, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.closing:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.out <- line:
		return nil
	case <-c.closing:
		return ErrConnectionClosed
	default:
		return ErrSendQueueFull
	}
}

// ReadMessage 读取并解码下一条消息
//
// 返回 protocol.ErrMalformed、protocol.ErrUnknownCommand 或
// protocol.ErrLineTooLong 时只有当前行被丢弃，连接仍可继续读取；
// 其他错误表示连接已不可用。
func (c *Conn) ReadMessage() (protocol.Message, error) {
	if c.cfg.IdleTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout)); err != nil {
			return nil, err
		}
	}
	line, err := c.reader.ReadLine()
	if err != nil {
		return nil, err
	}
	return protocol.Decode(line)
}

// Close 关闭连接
//
// 已入队的消息会在关闭底层连接前尽力写出。重复调用是安全的。
func (c *Conn) Close() error {
	c.shutdown()
	<-c.done
	return c.closeErr
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closing)
	})
}

// writeLoop 串行写出发送队列
func (c *Conn) writeLoop() {
	defer close(c.done)
	defer func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.closeErr = err
		}
	}()

	for {
		select {
		case line := <-c.out:
			if err := c.write(line); err != nil {
				log.Debug("写入失败，关闭连接", "conn", c.id, "remote", c.remote, "err", err)
				c.shutdown()
				return
			}
		case <-c.closing:
			c.drain()
			return
		}
	}
}

// drain 写出关闭前已入队的消息
func (c *Conn) drain() {
	for {
		select {
		case line := <-c.out:
			if err := c.write(line); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(line []byte) error {
	if c.cfg.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(line)
	return err
}
