package flood

import "errors"

var (
	// ErrNotListening 本地 PeerID 尚未确定
	ErrNotListening = errors.New("local peer id not set")

	// ErrInvalidTTL ttl 超出 [0, MaxTTL]
	ErrInvalidTTL = errors.New("ttl out of range")

	// ErrEmptySearchID 搜索标识为空
	ErrEmptySearchID = errors.New("empty search id")

	// ErrPayload 查询结果无法编码为 JSON
	ErrPayload = errors.New("query payload not encodable")
)
