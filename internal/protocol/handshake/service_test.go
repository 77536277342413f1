package handshake

import (
	"context"
	"errors"
	"fmt"
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

type fakeLocal struct {
	id     string
	public bool
}

func (l fakeLocal) LocalID() string { return l.id }
func (l fakeLocal) IsPublic() bool  { return l.public }

type fakeDialer struct {
	mu     sync.Mutex
	dialed []string
	fail   map[string]bool
}

func (d *fakeDialer) Connect(_ context.Context, addr string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, addr)
	if d.fail[addr] {
		return errors.New("connection refused")
	}
	return nil
}

func (d *fakeDialer) Dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dialed...)
}

type fixture struct {
	svc    *Service
	store  *peerstore.Store
	bus    *eventbus.Bus
	dialer *fakeDialer
}

func newFixture(t *testing.T, local fakeLocal) *fixture {
	t.Helper()
	store := peerstore.NewStore(peerstore.DefaultConfig(), clock.NewMock())
	bus := eventbus.NewBus()
	dialer := &fakeDialer{fail: map[string]bool{}}
	cfg := ConfigFromUnified(nil)
	cfg.Seed = 42

	svc, err := NewService(cfg, local, dialer, store, bus, metrics.NewMetrics("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return &fixture{svc: svc, store: store, bus: bus, dialer: dialer}
}

func TestService_Greet(t *testing.T) {
	f := newFixture(t, fakeLocal{id: "198.51.100.1:9099", public: true})
	conn := testutil.NewMockConn("203.0.113.5:51000")

	require.NoError(t, f.svc.Greet(conn))
	sent := conn.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, &protocol.Helo{From: "198.51.100.1:9099", To: "203.0.113.5", PublicIP: true}, sent[0])

	t.Run("not listening", func(t *testing.T) {
		f := newFixture(t, fakeLocal{})
		assert.ErrorIs(t, f.svc.Greet(conn), ErrNotListening)
	})
}

func TestService_HandleHelo(t *testing.T) {
	f := newFixture(t, fakeLocal{id: "10.0.0.1:9099"})
	sub, err := f.bus.Subscribe(new(types.EvtPeerJoined))
	require.NoError(t, err)
	defer sub.Close()

	// 已有邻居
	for i := 0; i < 5; i++ {
		_, err := f.store.Register(fmt.Sprintf("10.0.1.%d:9099", i), testutil.NewMockConn("x"), i%2 == 0, false)
		require.NoError(t, err)
	}

	conn := testutil.NewMockConn("10.0.0.2:40000")
	err = f.svc.HandleHelo(context.Background(), conn,
		&protocol.Helo{From: "10.0.0.2:9099", To: "10.0.0.1", PublicIP: true})
	require.NoError(t, err)

	friend, ok := f.store.Friend("10.0.0.2:9099")
	require.True(t, ok)
	assert.True(t, friend.Public)
	assert.True(t, friend.Visible)

	intros := conn.SentOf(protocol.KindIntroduce)
	require.Len(t, intros, 1)
	intro := intros[0].(*protocol.Introduce)
	assert.Equal(t, "10.0.0.1:9099", intro.From)
	assert.LessOrEqual(t, len(intro.MyFriends), 6)
	assert.NotContains(t, intro.MyFriends, "10.0.0.2:9099")
	assert.Len(t, Dedup(intro.MyFriends), len(intro.MyFriends), "无重复")

	ev := testutil.WaitEvent[types.EvtPeerJoined](t, sub, time.Second)
	assert.Equal(t, types.EvtPeerJoined{PeerID: "10.0.0.2:9099", Public: true}, ev)

	t.Run("invisible", func(t *testing.T) {
		conn := testutil.NewMockConn("10.0.0.3:40000")
		require.NoError(t, f.svc.HandleHelo(context.Background(), conn,
			&protocol.Helo{From: "10.0.0.3:9099", To: "192.0.2.1"}))
		friend, _ := f.store.Friend("10.0.0.3:9099")
		assert.False(t, friend.Visible)
		assert.False(t, friend.Public)
	})
}

func TestService_HandleHeloDisplacedPeerLeaves(t *testing.T) {
	f := newFixture(t, fakeLocal{id: "10.0.0.1:9099"})
	sub, err := f.bus.Subscribe(new(types.EvtPeerLeft))
	require.NoError(t, err)
	defer sub.Close()

	conn := testutil.NewMockConn("10.0.0.2:40000")
	require.NoError(t, f.svc.HandleHelo(context.Background(), conn,
		&protocol.Helo{From: "10.0.0.2:9099"}))
	require.NoError(t, f.svc.HandleHelo(context.Background(), conn,
		&protocol.Helo{From: "10.0.0.2:9100"}))

	ev := testutil.WaitEvent[types.EvtPeerLeft](t, sub, time.Second)
	assert.Equal(t, "10.0.0.2:9099", ev.PeerID)

	_, ok := f.store.Friend("10.0.0.2:9099")
	assert.False(t, ok)
	_, ok = f.store.Friend("10.0.0.2:9100")
	assert.True(t, ok)

	t.Run("same peer again", func(t *testing.T) {
		require.NoError(t, f.svc.HandleHelo(context.Background(), conn,
			&protocol.Helo{From: "10.0.0.2:9100"}))
		select {
		case ev := <-sub.Out():
			t.Fatalf("unexpected event %v", ev)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestService_Introductions(t *testing.T) {
	f := newFixture(t, fakeLocal{id: "self:1"})

	assert.Equal(t, []string{}, f.svc.Introductions("nobody:1"))

	for i := 0; i < 10; i++ {
		_, _ = f.store.Register(fmt.Sprintf("p%d:1", i), testutil.NewMockConn("x"), i < 4, false)
	}

	for round := 0; round < 20; round++ {
		got := f.svc.Introductions("p0:1")
		assert.LessOrEqual(t, len(got), 6)
		assert.GreaterOrEqual(t, len(got), 3)
		assert.NotContains(t, got, "p0:1")
		assert.Len(t, Dedup(got), len(got))

		best := 0
		for _, id := range got {
			if fr, _ := f.store.Friend(id); fr.Public {
				best++
			}
		}
		assert.GreaterOrEqual(t, best, 3, "公网邻居 p1..p3 全部入选")
	}
}

func TestService_HandleIntroduce(t *testing.T) {
	f := newFixture(t, fakeLocal{id: "self:1"})
	_, _ = f.store.Register("known:1", testutil.NewMockConn("known:1"), false, false)
	f.dialer.fail["bad:1"] = true

	msg := &protocol.Introduce{
		From:      "peer:1",
		MyFriends: []string{"b:1", "", "a:1", "b:1", "self:1", "known:1", "bad:1", " a:1 ", "noport", "0.0.0.0:9"},
	}
	require.NoError(t, f.svc.HandleIntroduce(context.Background(), nil, msg))

	assert.ElementsMatch(t, []string{"a:1", "b:1", "bad:1"}, f.dialer.Dialed(),
		"去重并跳过不可拨号、本地与已连接的地址，失败不影响其余候选")
}

func TestDedup(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Dedup([]string{"c", "a", "b", "a", "", "c"}))
	assert.Empty(t, Dedup(nil))
}

func TestSampler_Deterministic(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f"}
	s1 := NewSampler(7)
	s2 := NewSampler(7)

	for i := 0; i < 5; i++ {
		assert.Equal(t, s1.Sample(items, 3), s2.Sample(items, 3))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, items, "输入不被修改")
	assert.Len(t, s1.Sample(items, 10), 6)
	assert.Nil(t, s1.Sample(items, 0))
	assert.Nil(t, s1.Sample(nil, 3))
}
