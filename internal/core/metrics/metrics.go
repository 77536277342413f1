package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// 标签取值
const (
	ReasonMalformed      = "malformed"
	ReasonUnknownCommand = "unknown_command"
	ReasonLineTooLong    = "line_too_long"
	ReasonRateLimited    = "rate_limited"

	DropDuplicate = "duplicate"
	DropExhausted = "exhausted"
	DropLoopback  = "loopback"

	ReplyForwarded = "forwarded"
	ReplyDelivered = "delivered"
	ReplyDuplicate = "duplicate"

	DirInbound  = "inbound"
	DirOutbound = "outbound"
)

// Metrics 节点指标集合
type Metrics struct {
	registry *prometheus.Registry

	received       *prometheus.CounterVec
	sent           *prometheus.CounterVec
	sendFailures   *prometheus.CounterVec
	protocolErrors *prometheus.CounterVec
	floodDropped   *prometheus.CounterVec
	floodForwarded prometheus.Counter
	queries        *prometheus.CounterVec
	replies        *prometheus.CounterVec
	routeFailures  prometheus.Counter
	connections    *prometheus.CounterVec
	friends        prometheus.Gauge
	bestFriends    prometheus.Gauge
}

// NewMetrics 创建指标集合并注册到新的 Registry
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "peerflood"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_received_total",
			Help: "Inbound protocol messages by kind.",
		}, []string{"kind"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_sent_total",
			Help: "Outbound protocol messages by kind.",
		}, []string{"kind"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "send_failures_total",
			Help: "Messages that could not be queued for sending.",
		}, []string{"kind"}),
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "protocol_errors_total",
			Help: "Inbound lines discarded by reason.",
		}, []string{"reason"}),
		floodDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "flood_dropped_total",
			Help: "Search messages suppressed by reason.",
		}, []string{"reason"}),
		floodForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "flood_forwarded_total",
			Help: "Search messages forwarded to neighbours.",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "queries_total",
			Help: "Local query function invocations by result.",
		}, []string{"result"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "replies_total",
			Help: "Reply messages handled by action.",
		}, []string{"action"}),
		routeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "route_failures_total",
			Help: "Replies with no reverse path to the originator.",
		}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "connections_total",
			Help: "Established connections by direction.",
		}, []string{"direction"}),
		friends: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "friends",
			Help: "Currently registered neighbours.",
		}),
		bestFriends: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "best_friends",
			Help: "Currently registered publicly reachable neighbours.",
		}),
	}

	m.registry.MustRegister(
		m.received, m.sent, m.sendFailures, m.protocolErrors,
		m.floodDropped, m.floodForwarded, m.queries, m.replies,
		m.routeFailures, m.connections, m.friends, m.bestFriends,
	)
	return m
}

// WithRuntimeCollectors 注册 Go 运行时与进程指标
func (m *Metrics) WithRuntimeCollectors() *Metrics {
	if m == nil {
		return nil
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 返回指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ============================================================================
//                              记录方法
// ============================================================================

// MessageReceived 记录入站消息
func (m *Metrics) MessageReceived(kind string) {
	if m != nil {
		m.received.WithLabelValues(kind).Inc()
	}
}

// MessageSent 记录出站消息
func (m *Metrics) MessageSent(kind string) {
	if m != nil {
		m.sent.WithLabelValues(kind).Inc()
	}
}

// SendFailed 记录入队失败
func (m *Metrics) SendFailed(kind string) {
	if m != nil {
		m.sendFailures.WithLabelValues(kind).Inc()
	}
}

// ProtocolError 记录协议错误
func (m *Metrics) ProtocolError(reason string) {
	if m != nil {
		m.protocolErrors.WithLabelValues(reason).Inc()
	}
}

// FloodDropped 记录洪泛抑制
func (m *Metrics) FloodDropped(reason string) {
	if m != nil {
		m.floodDropped.WithLabelValues(reason).Inc()
	}
}

// FloodForwarded 记录 n 次转发
func (m *Metrics) FloodForwarded(n int) {
	if m != nil && n > 0 {
		m.floodForwarded.Add(float64(n))
	}
}

// Query 记录一次本地查询
func (m *Metrics) Query(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.queries.WithLabelValues("hit").Inc()
	} else {
		m.queries.WithLabelValues("miss").Inc()
	}
}

// Reply 记录应答处理
func (m *Metrics) Reply(action string) {
	if m != nil {
		m.replies.WithLabelValues(action).Inc()
	}
}

// RouteFailure 记录无反向路径
func (m *Metrics) RouteFailure() {
	if m != nil {
		m.routeFailures.Inc()
	}
}

// ConnectionOpened 记录建立的连接
func (m *Metrics) ConnectionOpened(direction string) {
	if m != nil {
		m.connections.WithLabelValues(direction).Inc()
	}
}

// SetFriends 更新邻居数
func (m *Metrics) SetFriends(friends, best int) {
	if m == nil {
		return
	}
	m.friends.Set(float64(friends))
	m.bestFriends.Set(float64(best))
}
