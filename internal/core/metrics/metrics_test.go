package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-peerflood/config"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("test")

	m.MessageReceived("whohas")
	m.MessageReceived("whohas")
	m.MessageSent("ping")
	m.SendFailed("ping")
	m.ProtocolError(ReasonMalformed)
	m.FloodDropped(DropDuplicate)
	m.FloodForwarded(3)
	m.FloodForwarded(0)
	m.Query(true)
	m.Query(false)
	m.Query(false)
	m.Reply(ReplyDelivered)
	m.RouteFailure()
	m.ConnectionOpened(DirInbound)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.received.WithLabelValues("whohas")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sent.WithLabelValues("ping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendFailures.WithLabelValues("ping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.protocolErrors.WithLabelValues(ReasonMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.floodDropped.WithLabelValues(DropDuplicate)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.floodForwarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queries.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replies.WithLabelValues(ReplyDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.routeFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections.WithLabelValues(DirInbound)))
}

func TestMetrics_Gauges(t *testing.T) {
	m := NewMetrics("test")
	m.SetFriends(4, 1)

	expected := `
# HELP test_best_friends Currently registered publicly reachable neighbours.
# TYPE test_best_friends gauge
test_best_friends 1
# HELP test_friends Currently registered neighbours.
# TYPE test_friends gauge
test_friends 4
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"test_friends", "test_best_friends"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MessageReceived("ping")
		m.MessageSent("ping")
		m.SendFailed("ping")
		m.ProtocolError(ReasonLineTooLong)
		m.FloodDropped(DropLoopback)
		m.FloodForwarded(1)
		m.Query(true)
		m.Reply(ReplyForwarded)
		m.RouteFailure()
		m.ConnectionOpened(DirOutbound)
		m.SetFriends(1, 1)
		assert.Nil(t, m.Registry())
		assert.Nil(t, m.WithRuntimeCollectors())
	})
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics("")
	b := NewMetrics("")
	a.RouteFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.routeFailures))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.routeFailures))

	a.WithRuntimeCollectors()
	n, err := testutil.GatherAndCount(a.Registry(), "go_goroutines")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// ============================================================================
// Fx 模块测试
// ============================================================================

func TestModule_Provides(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Namespace = "custom"

	var m *Metrics
	app := fxtest.New(t,
		Module,
		fx.Supply(cfg),
		fx.Populate(&m),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, m)
	m.SetFriends(2, 0)
	n, err := testutil.GatherAndCount(m.Registry(), "custom_friends")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
