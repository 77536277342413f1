package host

import (
	"context"
	"errors"
	"io"
	"net"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/transport/tcp"
	"github.com/dep2p/go-peerflood/pkg/protocol"
	"github.com/dep2p/go-peerflood/pkg/types"
)

// ============================================================================
//                              连接生命周期
// ============================================================================

// acceptLoop 接受入站连接
func (h *Host) acceptLoop(l *tcp.Listener) {
	defer h.refCount.Done()

	for {
		c, err := l.Accept()
		if err != nil {
			if errors.Is(err, tcp.ErrTransportClosed) || h.closed.Load() {
				return
			}
			log.Warn("接受连接失败", "err", err)
			continue
		}
		if err := h.serve(c, metrics.DirInbound); err != nil {
			log.Debug("拒绝入站连接", "remote", c.RemoteAddr(), "err", err)
		}
	}
}

// serve 登记连接、发送问候并启动读循环
func (h *Host) serve(c *tcp.Conn, direction string) error {
	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		_ = c.Close()
		return ErrClosed
	}
	h.conns[c.ID()] = c
	h.refCount.Add(1)
	h.mu.Unlock()

	h.metrics.ConnectionOpened(direction)
	log.Debug("连接已建立", "conn", c.ID(), "remote", c.RemoteAddr(), "direction", direction)

	hs, _, _ := h.handlers()
	if hs != nil {
		if err := hs.Greet(c); err != nil {
			log.Warn("发送问候失败", "remote", c.RemoteAddr(), "err", err)
		}
	}

	go h.readLoop(c)
	return nil
}

// readLoop 逐行读取并分发消息，连接不可用时注销
func (h *Host) readLoop(c *tcp.Conn) {
	defer h.refCount.Done()
	defer h.teardown(c)

	var limiter *rate.Limiter
	if h.config.RateLimit {
		limiter = rate.NewLimiter(rate.Limit(h.config.MessagesPerSec), h.config.Burst)
	}

	for {
		msg, err := c.ReadMessage()
		if err != nil {
			if reason, ok := protocolErrorReason(err); ok {
				h.metrics.ProtocolError(reason)
				log.Debug("丢弃无效消息", "remote", c.RemoteAddr(), "err", err)
				continue
			}
			if !isClosedErr(err) {
				log.Debug("读取失败，关闭连接", "remote", c.RemoteAddr(), "err", err)
			}
			return
		}

		if limiter != nil && !limiter.Allow() {
			h.metrics.ProtocolError(metrics.ReasonRateLimited)
			if err := limiter.Wait(h.ctx); err != nil {
				return
			}
		}

		h.metrics.MessageReceived(msg.Kind().String())
		if err := h.dispatch(c, msg); err != nil {
			log.Debug("处理消息失败",
				"cmd", msg.Kind().String(),
				"from", msg.Sender(),
				"err", err)
		}
	}
}

// dispatch 按消息种类交给对应处理器
func (h *Host) dispatch(c *tcp.Conn, msg protocol.Message) error {
	hs, fl, lv := h.handlers()

	switch m := msg.(type) {
	case *protocol.Helo:
		if hs == nil {
			return ErrNoHandler
		}
		return hs.HandleHelo(h.ctx, c, m)
	case *protocol.Introduce:
		if hs == nil {
			return ErrNoHandler
		}
		// 拨号可能耗时，不阻塞读循环
		h.refCount.Add(1)
		go func() {
			defer h.refCount.Done()
			if err := hs.HandleIntroduce(h.ctx, c, m); err != nil {
				log.Debug("处理介绍失败", "from", m.From, "err", err)
			}
		}()
		return nil
	case *protocol.WhoHas:
		if fl == nil {
			return ErrNoHandler
		}
		return fl.HandleWhoHas(h.ctx, c, m)
	case *protocol.TellTo:
		if fl == nil {
			return ErrNoHandler
		}
		return fl.HandleTellTo(h.ctx, c, m)
	case *protocol.Ping:
		if lv == nil {
			return ErrNoHandler
		}
		return lv.HandlePing(h.ctx, c, m)
	case *protocol.Pong:
		if lv == nil {
			return ErrNoHandler
		}
		return lv.HandlePong(h.ctx, c, m)
	case *protocol.SeeYa:
		if lv == nil {
			return ErrNoHandler
		}
		return lv.HandleSeeYa(h.ctx, c, m)
	default:
		return ErrNoHandler
	}
}

// teardown 关闭连接并注销其邻居与路由，可重复调用
func (h *Host) teardown(c *tcp.Conn) {
	h.mu.Lock()
	_, tracked := h.conns[c.ID()]
	delete(h.conns, c.ID())
	h.mu.Unlock()

	_ = c.Close()
	if !tracked {
		return
	}

	f, removed := h.store.UnregisterConnection(c)
	if !removed {
		log.Debug("未握手的连接已关闭", "remote", c.RemoteAddr())
		return
	}

	friends, best := h.store.Count()
	h.metrics.SetFriends(friends, best)

	log.Info("邻居已离开", "peerID", f.PeerID, "friends", friends, "bestFriends", best)
	if err := h.leftEmitter.Emit(types.EvtPeerLeft{PeerID: f.PeerID}); err != nil {
		log.Debug("发出离开事件失败", "err", err)
	}
}

func protocolErrorReason(err error) (string, bool) {
	switch {
	case errors.Is(err, protocol.ErrMalformed):
		return metrics.ReasonMalformed, true
	case errors.Is(err, protocol.ErrUnknownCommand):
		return metrics.ReasonUnknownCommand, true
	case errors.Is(err, protocol.ErrLineTooLong):
		return metrics.ReasonLineTooLong, true
	default:
		return "", false
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled)
}
