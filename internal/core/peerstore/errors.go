package peerstore

import "errors"

var (
	// ErrNoRoute 没有可回传到目标发起方的反向路径
	ErrNoRoute = errors.New("no reverse path to originator")

	// ErrEmptyPeerID PeerID 为空
	ErrEmptyPeerID = errors.New("empty peer id")

	// ErrNilConn 连接为空
	ErrNilConn = errors.New("nil connection")
)
