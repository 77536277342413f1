package interfaces

import (
	"context"

	"github.com/dep2p/go-peerflood/pkg/protocol"
)

// Conn 定义对等连接接口
//
// 连接对上层表现为双向的消息通道：入站消息由 Host 的读循环分发，
// 出站消息经 Send 进入连接自己的发送队列，调用方不会在网络 I/O 上阻塞。
type Conn interface {
	// ID 返回连接唯一标识
	ID() string

	// RemoteAddr 返回对端传输地址（host:port）
	RemoteAddr() string

	// Send 将消息放入发送队列
	//
	// 连接已关闭或队列已满时返回错误。
	Send(msg protocol.Message) error

	// Close 关闭连接
	Close() error
}

// Local 定义本地节点身份
type Local interface {
	// LocalID 返回本地 PeerID，监听前为空
	LocalID() string

	// IsPublic 返回本地节点是否公网可达
	IsPublic() bool
}

// Dialer 定义主动拨号能力
type Dialer interface {
	// Connect 拨号并完成握手发送
	Connect(ctx context.Context, addr string) error
}

// Disconnector 定义主动断开能力
type Disconnector interface {
	// Disconnect 关闭到指定节点的连接并注销其状态
	Disconnect(peerID string)
}

// IPDiscoverer 定义外部地址查询
type IPDiscoverer interface {
	// Discover 返回本节点对外可见的 IPv4 地址
	Discover(ctx context.Context) (string, error)
}
