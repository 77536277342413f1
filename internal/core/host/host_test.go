package host

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-peerflood/internal/core/eventbus"
	"github.com/dep2p/go-peerflood/internal/core/metrics"
	nathttp "github.com/dep2p/go-peerflood/internal/core/nat/http"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/core/transport/tcp"
	"github.com/dep2p/go-peerflood/internal/util/testutil"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
	"github.com/dep2p/go-peerflood/pkg/protocol"
	"github.com/dep2p/go-peerflood/pkg/types"
)

// ============================================================================
//                              测试桩
// ============================================================================

// stubHandshake 问候时只登记对端，不做介绍
type stubHandshake struct {
	h *Host
}

func (s *stubHandshake) Greet(conn pkgif.Conn) error {
	return conn.Send(&protocol.Helo{From: s.h.LocalID(), To: conn.RemoteAddr()})
}

func (s *stubHandshake) HandleHelo(_ context.Context, conn pkgif.Conn, msg *protocol.Helo) error {
	_, err := s.h.Store().Register(msg.From, conn, msg.PublicIP, false)
	return err
}

func (s *stubHandshake) HandleIntroduce(context.Context, pkgif.Conn, *protocol.Introduce) error {
	return nil
}

// recordingLiveness 记录收到的 ping
type recordingLiveness struct {
	mu    sync.Mutex
	pings []string
}

func (r *recordingLiveness) HandlePing(_ context.Context, _ pkgif.Conn, msg *protocol.Ping) error {
	r.mu.Lock()
	r.pings = append(r.pings, msg.From)
	r.mu.Unlock()
	return nil
}

func (r *recordingLiveness) HandlePong(context.Context, pkgif.Conn, *protocol.Pong) error {
	return nil
}

func (r *recordingLiveness) HandleSeeYa(context.Context, pkgif.Conn, *protocol.SeeYa) error {
	return nil
}

func (r *recordingLiveness) Pings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.pings...)
}

type testHost struct {
	*Host
	bus      *eventbus.Bus
	metrics  *metrics.Metrics
	liveness *recordingLiveness
}

func newTestHost(t *testing.T, opts ...Option) *testHost {
	t.Helper()

	bus := eventbus.NewBus()
	m := metrics.NewMetrics("test")
	base := []Option{
		WithTransport(tcp.NewTransport(tcp.DefaultConfig())),
		WithStore(peerstore.NewStore(peerstore.Config{QueryCacheSize: 16}, clock.New())),
		WithEventBus(bus),
		WithMetrics(m),
	}
	h, err := New(append(base, opts...)...)
	require.NoError(t, err)

	lv := &recordingLiveness{}
	h.SetHandshakeHandler(&stubHandshake{h: h})
	h.SetLivenessHandler(lv)
	t.Cleanup(func() { _ = h.Close() })

	return &testHost{Host: h, bus: bus, metrics: m, liveness: lv}
}

func listen(t *testing.T, h *testHost) {
	t.Helper()
	require.NoError(t, h.Listen(context.Background(), "127.0.0.1:0"))
}

// rawClient 直接读写线路的测试客户端
type rawClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dialRaw(t *testing.T, addr string) *rawClient {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return &rawClient{conn: c, reader: bufio.NewReader(c)}
}

func (r *rawClient) write(t *testing.T, line string) {
	t.Helper()
	_, err := r.conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

func (r *rawClient) send(t *testing.T, msg protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(msg)
	require.NoError(t, err)
	_, err = r.conn.Write(data)
	require.NoError(t, err)
}

func (r *rawClient) read(t *testing.T) protocol.Message {
	t.Helper()
	require.NoError(t, r.conn.SetReadDeadline(time.Now().Add(testutil.DefaultTimeout)))
	line, err := r.reader.ReadBytes('\n')
	require.NoError(t, err)
	msg, err := protocol.Decode(line)
	require.NoError(t, err)
	return msg
}

// ============================================================================
//                              身份
// ============================================================================

func TestResolveIdentity(t *testing.T) {
	tests := []struct {
		name       string
		listenHost string
		advertise  string
		externalIP string
		wantID     string
		wantPublic bool
	}{
		{"具体地址且外部一致", "203.0.113.5", "", "203.0.113.5", "203.0.113.5:9099", true},
		{"具体地址且外部不同", "10.0.0.2", "", "203.0.113.5", "10.0.0.2:9099", false},
		{"具体地址无外部", "10.0.0.2", "", "", "10.0.0.2:9099", false},
		{"未指定地址用外部 IP", "0.0.0.0", "", "203.0.113.5", "203.0.113.5:9099", false},
		{"未指定地址无外部", "0.0.0.0", "", "", "127.0.0.1:9099", false},
		{"空主机", "", "", "", "127.0.0.1:9099", false},
		{"IPv6 未指定", "::", "", "", "127.0.0.1:9099", false},
		{"显式对外地址", "0.0.0.0", "198.51.100.7:7000", "", "198.51.100.7:7000", false},
		{"显式对外地址且外部一致", "0.0.0.0", "198.51.100.7:7000", "198.51.100.7", "198.51.100.7:7000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, public := resolveIdentity(tt.listenHost, 9099, tt.advertise, tt.externalIP)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantPublic, public)
		})
	}
}

// ============================================================================
//                              构造与监听
// ============================================================================

func TestNew_RequiresDeps(t *testing.T) {
	bus := eventbus.NewBus()
	store := peerstore.NewStore(peerstore.Config{QueryCacheSize: 16}, clock.New())
	tr := tcp.NewTransport(tcp.DefaultConfig())

	_, err := New(WithStore(store), WithEventBus(bus))
	assert.ErrorIs(t, err, ErrNilTransport)

	_, err = New(WithTransport(tr), WithEventBus(bus))
	assert.ErrorIs(t, err, ErrNilStore)

	_, err = New(WithTransport(tr), WithStore(store))
	assert.ErrorIs(t, err, ErrNilEventBus)

	_, err = New(WithTransport(tr), WithStore(store), WithEventBus(bus),
		WithConfig(&Config{AdvertiseAddr: "no-port"}))
	assert.Error(t, err)
}

func TestListen(t *testing.T) {
	t.Run("确定身份并发出事件", func(t *testing.T) {
		h := newTestHost(t)
		assert.Empty(t, h.LocalID())

		listen(t, h)
		assert.Equal(t, h.ListenAddr(), h.LocalID())
		assert.False(t, h.IsPublic())

		// 有状态事件补发给后来的订阅者
		sub, err := h.bus.Subscribe(new(types.EvtListening))
		require.NoError(t, err)
		defer sub.Close()

		ev := testutil.WaitEvent[types.EvtListening](t, sub, testutil.DefaultTimeout)
		assert.Equal(t, h.LocalID(), ev.PeerID)
		assert.False(t, ev.Public)
	})

	t.Run("外部地址一致视为公网可达", func(t *testing.T) {
		h := newTestHost(t, WithDiscoverer(nathttp.Static("127.0.0.1")))
		listen(t, h)
		assert.True(t, h.IsPublic())
	})

	t.Run("外部地址查询失败", func(t *testing.T) {
		h := newTestHost(t, WithDiscoverer(nathttp.Static("")))
		listen(t, h)
		assert.False(t, h.IsPublic())
	})

	t.Run("重复监听", func(t *testing.T) {
		h := newTestHost(t)
		listen(t, h)
		assert.ErrorIs(t, h.Listen(context.Background(), "127.0.0.1:0"), ErrAlreadyListening)
	})

	t.Run("关闭后监听", func(t *testing.T) {
		h := newTestHost(t)
		require.NoError(t, h.Close())
		assert.ErrorIs(t, h.Listen(context.Background(), "127.0.0.1:0"), ErrClosed)
	})
}

// ============================================================================
//                              连接
// ============================================================================

func TestConnect_Errors(t *testing.T) {
	h := newTestHost(t)
	assert.ErrorIs(t, h.Connect(context.Background(), "127.0.0.1:1"), ErrNotListening)

	listen(t, h)
	assert.ErrorIs(t, h.Connect(context.Background(), h.LocalID()), ErrSelfDial)
	assert.ErrorIs(t, h.Connect(context.Background(), "no-port"), ErrInvalidAddr)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, h.Connect(ctx, "127.0.0.1:1"))
}

func TestConnect_RegistersBothSides(t *testing.T) {
	a := newTestHost(t)
	b := newTestHost(t)
	listen(t, a)
	listen(t, b)

	require.NoError(t, a.Connect(context.Background(), b.LocalID()))

	require.Eventually(t, func() bool {
		_, okA := a.Store().Friend(b.LocalID())
		_, okB := b.Store().Friend(a.LocalID())
		return okA && okB
	}, testutil.DefaultTimeout, 10*time.Millisecond)

	assert.ErrorIs(t, a.Connect(context.Background(), b.LocalID()), ErrAlreadyConnected)
}

func TestDisconnect_EmitsPeerLeft(t *testing.T) {
	a := newTestHost(t)
	b := newTestHost(t)
	listen(t, a)
	listen(t, b)

	sub, err := b.bus.Subscribe(new(types.EvtPeerLeft))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, a.Connect(context.Background(), b.LocalID()))
	require.Eventually(t, func() bool {
		_, inB := b.Store().Friend(a.LocalID())
		_, inA := a.Store().Friend(b.LocalID())
		return inA && inB
	}, testutil.DefaultTimeout, 10*time.Millisecond)

	// 未知 PeerID 不做任何事
	a.Disconnect("192.0.2.1:9099")
	assert.Equal(t, 1, a.Conns())

	a.Disconnect(b.LocalID())

	ev := testutil.WaitEvent[types.EvtPeerLeft](t, sub, testutil.DefaultTimeout)
	assert.Equal(t, a.LocalID(), ev.PeerID)

	_, ok := a.Store().Friend(b.LocalID())
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return b.Conns() == 0 }, testutil.DefaultTimeout, 10*time.Millisecond)
}

// ============================================================================
//                              读循环
// ============================================================================

func TestReadLoop_SkipsInvalidLines(t *testing.T) {
	h := newTestHost(t)
	listen(t, h)

	c := dialRaw(t, h.LocalID())
	assert.IsType(t, &protocol.Helo{}, c.read(t))

	c.write(t, "not json")
	c.write(t, `{"cmd":"bogus","from":"x"}`)
	c.send(t, &protocol.Ping{From: "127.0.0.1:5555"})

	require.Eventually(t, func() bool {
		return len(h.liveness.Pings()) == 1
	}, testutil.DefaultTimeout, 10*time.Millisecond)
	assert.Equal(t, []string{"127.0.0.1:5555"}, h.liveness.Pings())
	assert.Equal(t, 1, h.Conns())
}

func TestReadLoop_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MessagesPerSec = 1000
	cfg.Burst = 1
	h := newTestHost(t, WithConfig(cfg))
	listen(t, h)

	c := dialRaw(t, h.LocalID())
	c.read(t)
	for i := 0; i < 5; i++ {
		c.send(t, &protocol.Ping{From: "127.0.0.1:5555"})
	}

	// 超限消息被延后处理而非丢弃
	require.Eventually(t, func() bool {
		return len(h.liveness.Pings()) == 5
	}, testutil.DefaultTimeout, 10*time.Millisecond)
}

// ============================================================================
//                              关闭
// ============================================================================

func TestClose_SendsSeeYa(t *testing.T) {
	h := newTestHost(t)
	listen(t, h)

	c := dialRaw(t, h.LocalID())
	c.read(t)
	c.send(t, &protocol.Helo{From: "127.0.0.1:5555", To: h.LocalID()})

	require.Eventually(t, func() bool {
		_, ok := h.Store().Friend("127.0.0.1:5555")
		return ok
	}, testutil.DefaultTimeout, 10*time.Millisecond)

	require.NoError(t, h.Close())
	assert.True(t, h.Closed())

	msg := c.read(t)
	require.IsType(t, &protocol.SeeYa{}, msg)
	assert.Equal(t, h.LocalID(), msg.(*protocol.SeeYa).From)

	// 幂等
	assert.NoError(t, h.Close())
	assert.ErrorIs(t, h.Connect(context.Background(), "127.0.0.1:1"), ErrClosed)
}

// ============================================================================
//                              fx 模块
// ============================================================================

func TestModule(t *testing.T) {
	var (
		h     *Host
		local pkgif.Local
	)

	app := fxtest.New(t,
		eventbus.Module(),
		fx.Provide(func() *tcp.Transport { return tcp.NewTransport(tcp.DefaultConfig()) }),
		peerstore.Module(),
		Module(),
		fx.Populate(&h, &local),
	)
	app.RequireStart()

	require.NotNil(t, h)
	assert.Same(t, h, local)

	app.RequireStop()
	assert.True(t, h.Closed())
}
