package interfaces

import (
	"context"

	"github.com/dep2p/go-peerflood/pkg/protocol"
)

// HandshakeHandler 处理握手与邻居介绍
type HandshakeHandler interface {
	// Greet 在新建立的连接上发送问候
	Greet(conn Conn) error

	// HandleHelo 处理问候：登记邻居并回送介绍
	HandleHelo(ctx context.Context, conn Conn, msg *protocol.Helo) error

	// HandleIntroduce 处理介绍：拨号候选地址
	HandleIntroduce(ctx context.Context, conn Conn, msg *protocol.Introduce) error
}

// FloodHandler 处理洪泛搜索与应答
type FloodHandler interface {
	HandleWhoHas(ctx context.Context, conn Conn, msg *protocol.WhoHas) error
	HandleTellTo(ctx context.Context, conn Conn, msg *protocol.TellTo) error
}

// LivenessHandler 处理存活检测消息
type LivenessHandler interface {
	HandlePing(ctx context.Context, conn Conn, msg *protocol.Ping) error
	HandlePong(ctx context.Context, conn Conn, msg *protocol.Pong) error
	HandleSeeYa(ctx context.Context, conn Conn, msg *protocol.SeeYa) error
}
