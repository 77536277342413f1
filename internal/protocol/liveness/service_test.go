package liveness

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-peerflood/internal/core/eventbus"
	"github.com/dep2p/go-peerflood/internal/core/metrics"
	"github.com/dep2p/go-peerflood/internal/core/peerstore"
	"github.com/dep2p/go-peerflood/internal/util/testutil"
	"github.com/dep2p/go-peerflood/pkg/protocol"
	"github.com/dep2p/go-peerflood/pkg/types"
)

type fakeLocal string

func (l fakeLocal) LocalID() string { return string(l) }
func (l fakeLocal) IsPublic() bool  { return false }

type fakeDisconnector struct {
	mu    sync.Mutex
	peers []string
}

func (d *fakeDisconnector) Disconnect(peerID string) {
	d.mu.Lock()
	d.peers = append(d.peers, peerID)
	d.mu.Unlock()
}

func (d *fakeDisconnector) Peers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.peers...)
}

type fixture struct {
	svc     *Service
	store   *peerstore.Store
	bus     *eventbus.Bus
	clock   *clock.Mock
	disconn *fakeDisconnector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock()
	store := peerstore.NewStore(peerstore.DefaultConfig(), clk)
	bus := eventbus.NewBus()
	disconn := &fakeDisconnector{}

	svc, err := New(fakeLocal("self:1"), store, disconn, bus, metrics.NewMetrics("test"),
		WithClock(clk), WithInterval(25*time.Second), WithThreshold(128*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return &fixture{svc: svc, store: store, bus: bus, clock: clk, disconn: disconn}
}

func (f *fixture) friend(t *testing.T, id string) *testutil.MockConn {
	t.Helper()
	c := testutil.NewMockConn(id)
	_, err := f.store.Register(id, c, false, false)
	require.NoError(t, err)
	return c
}

func TestService_CheckPingsStaleOnce(t *testing.T) {
	f := newFixture(t)
	quiet := f.friend(t, "quiet:1")

	f.clock.Add(100 * time.Second)
	chatty := f.friend(t, "chatty:1")

	assert.Zero(t, f.svc.Check(), "阈值内不 ping")

	f.clock.Add(30 * time.Second)
	assert.Equal(t, 1, f.svc.Check())
	assert.Len(t, quiet.SentOf(protocol.KindPing), 1)
	assert.Empty(t, chatty.Sent())

	// 每个周期一次，直到收到 pong
	assert.Equal(t, 1, f.svc.Check())
	assert.Len(t, quiet.SentOf(protocol.KindPing), 2)

	require.NoError(t, f.svc.HandlePong(context.Background(), quiet, &protocol.Pong{From: "quiet:1"}))
	assert.Zero(t, f.svc.Check())
	assert.Len(t, quiet.SentOf(protocol.KindPing), 2)
}

func TestService_Loop(t *testing.T) {
	f := newFixture(t)
	quiet := f.friend(t, "quiet:1")

	require.NoError(t, f.svc.Start(context.Background()))
	assert.ErrorIs(t, f.svc.Start(context.Background()), ErrAlreadyStarted)

	// 阈值之前的周期不发 ping
	for i := 0; i < 5; i++ {
		f.clock.Add(25 * time.Second)
	}
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, quiet.Sent())

	f.clock.Add(25 * time.Second)
	assert.Eventually(t, func() bool {
		return len(quiet.SentOf(protocol.KindPing)) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.svc.Stop(context.Background()))
	assert.ErrorIs(t, f.svc.Stop(context.Background()), ErrNotStarted)

	f.clock.Add(25 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, quiet.SentOf(protocol.KindPing), 1, "停止后不再探测")
}

func TestService_HandlePing(t *testing.T) {
	f := newFixture(t)
	conn := f.friend(t, "a:1")

	sub, err := f.bus.Subscribe(new(types.EvtPing))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, f.svc.HandlePing(context.Background(), conn, &protocol.Ping{From: "a:1"}))
	assert.Equal(t, []protocol.Message{&protocol.Pong{From: "self:1"}}, conn.Sent())

	ev := testutil.WaitEvent[types.EvtPing](t, sub, time.Second)
	assert.Equal(t, "a:1", ev.From)
}

func TestService_HandlePongRefreshes(t *testing.T) {
	f := newFixture(t)
	conn := f.friend(t, "a:1")

	f.clock.Add(time.Hour)
	require.NoError(t, f.svc.HandlePong(context.Background(), conn, &protocol.Pong{From: "spoofed:1"}))

	fr, ok := f.store.Friend("a:1")
	require.True(t, ok)
	assert.Equal(t, f.clock.Now(), fr.LastSeen, "按连接定位对端")

	// 未登记的连接退回 from
	stranger := testutil.NewMockConn("x")
	require.NoError(t, f.svc.HandlePong(context.Background(), stranger, &protocol.Pong{From: "nobody:1"}))
}

func TestService_HandleSeeYa(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		f := newFixture(t)
		conn := f.friend(t, "a:1")

		require.NoError(t, f.svc.HandleSeeYa(context.Background(), conn, &protocol.SeeYa{From: "a:1"}))
		assert.Len(t, conn.SentOf(protocol.KindPing), 1)
		assert.Empty(t, f.disconn.Peers())
	})

	t.Run("unreachable", func(t *testing.T) {
		f := newFixture(t)
		conn := f.friend(t, "a:1")
		require.NoError(t, conn.Close())

		require.NoError(t, f.svc.HandleSeeYa(context.Background(), conn, &protocol.SeeYa{From: "a:1"}))
		assert.Equal(t, []string{"a:1"}, f.disconn.Peers())
	})
}
