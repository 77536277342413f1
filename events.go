package peerflood

import (
	"github.com/dep2p/go-peerflood/internal/protocol/flood"
	pkgif "github.com/dep2p/go-peerflood/pkg/interfaces"
	"github.com/dep2p/go-peerflood/pkg/types"
)

// 事件类型
type (
	EvtListening  = types.EvtListening
	EvtPeerJoined = types.EvtPeerJoined
	EvtPeerLeft   = types.EvtPeerLeft
	EvtPing       = types.EvtPing
	EvtSearch     = types.EvtSearch
	EvtResult     = types.EvtResult
)

// Subscription 事件订阅
type Subscription = pkgif.Subscription

// QueryFunc 本地查询函数，ok 为 true 表示命中
type QueryFunc = flood.QueryFunc
