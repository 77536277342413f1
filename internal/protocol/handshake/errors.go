package handshake

import "errors"

var (
	// ErrNotListening 本地 PeerID 尚未确定
	ErrNotListening = errors.New("local peer id not set")

	// ErrNilStore 缺少状态存储
	ErrNilStore = errors.New("nil store")
)
