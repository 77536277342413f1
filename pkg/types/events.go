package types

import "encoding/json"

// ============================================================================
//                              节点事件
// ============================================================================

// EvtListening 节点已解析公网地址并开始监听
type EvtListening struct {
	// PeerID 本地 PeerID
	PeerID string

	// ListenAddr 实际监听地址
	ListenAddr string

	// Public 是否公网可达
	Public bool
}

// EvtPeerJoined 收到新邻居的握手（对应 "peer" 事件）
type EvtPeerJoined struct {
	PeerID string

	// Public 对端是否声明公网可达
	Public bool
}

// EvtPeerLeft 邻居断开（对应 "end" 事件）
type EvtPeerLeft struct {
	PeerID string
}

// EvtPing 收到邻居的 ping
type EvtPing struct {
	From string
}

// ============================================================================
//                              搜索事件
// ============================================================================

// EvtSearch 观察到一个新的搜索请求
type EvtSearch struct {
	// ID 搜索标识
	ID string

	// Originator 搜索发起方
	Originator string

	// TTL 收到时的剩余跳数
	TTL int
}

// EvtResult 本地发起的搜索收到命中
type EvtResult struct {
	ID string

	// From 命中方 PeerID
	From string

	// Payload 命中方返回的 JSON 载荷
	Payload json.RawMessage
}
