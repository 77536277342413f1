package liveness

import "errors"

// 定义错误
var (
	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("service already started")

	// ErrNotStarted 服务未启动
	ErrNotStarted = errors.New("service not started")

	// ErrNotListening 本地 PeerID 尚未确定
	ErrNotListening = errors.New("local peer id not set")
)
