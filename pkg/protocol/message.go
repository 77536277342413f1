package protocol

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
//                              协议常量
// ============================================================================

const (
	// DefaultPort 默认监听端口
	DefaultPort = 9099

	// MaxTTL 洪泛搜索的初始跳数预算
	//
	// 反向路径的 remainingHops 也以此为基准计算：MaxTTL - ttl + 1。
	MaxTTL = 10

	// DefaultMaxLineSize 单行消息的默认长度上限
	DefaultMaxLineSize = 64 * 1024
)

// ============================================================================
//                              消息类型
// ============================================================================

// Kind 消息种类
type Kind uint8

const (
	// KindHelo 握手
	KindHelo Kind = iota + 1
	// KindIntroduce 介绍邻居（letmeintr）
	KindIntroduce
	// KindWhoHas 洪泛搜索请求
	KindWhoHas
	// KindTellTo 沿反向路径回传的命中应答
	KindTellTo
	// KindSeeYa 优雅离开
	KindSeeYa
	// KindPing 存活探测
	KindPing
	// KindPong 存活应答
	KindPong
)

// 命令名称（线路上 cmd 字段的取值）
const (
	CmdIntroduce = "letmeintr"
	CmdWhoHas    = "whohas"
	CmdTellTo    = "tellto"
	CmdSeeYa     = "seeya"
	CmdPing      = "ping"
	CmdPong      = "pong"
)

// String 返回线路上使用的名称
func (k Kind) String() string {
	switch k {
	case KindHelo:
		return "helo"
	case KindIntroduce:
		return CmdIntroduce
	case KindWhoHas:
		return CmdWhoHas
	case KindTellTo:
		return CmdTellTo
	case KindSeeYa:
		return CmdSeeYa
	case KindPing:
		return CmdPing
	case KindPong:
		return CmdPong
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Message 线路消息
//
// 具体类型为 *Helo、*Introduce、*WhoHas、*TellTo、*SeeYa、*Ping、*Pong。
type Message interface {
	// Kind 返回消息种类
	Kind() Kind

	// Sender 返回消息中声明的发送方 PeerID
	Sender() string
}

// Helo 握手消息，连接建立后双方各自发送一次
type Helo struct {
	// From 发送方 PeerID（host:port）
	From string `json:"from"`

	// To 发送方观察到的对端地址
	To string `json:"to"`

	// PublicIP 发送方是否认为自己公网可达
	PublicIP bool `json:"publicip"`
}

// Introduce 介绍消息，携带发送方的部分邻居地址
type Introduce struct {
	From      string   `json:"from"`
	MyFriends []string `json:"myfriends"`
}

// WhoHas 洪泛搜索请求
type WhoHas struct {
	// From 搜索发起方（originator），转发过程中保持不变
	From string `json:"from"`

	// Hop 上一跳 PeerID，每次转发改写为转发方
	Hop string `json:"hop"`

	// ID 搜索标识
	ID string `json:"id"`

	// TTL 剩余跳数
	TTL int `json:"ttl"`
}

// TellTo 命中应答，沿反向路径送回发起方
type TellTo struct {
	// From 命中方 PeerID
	From string `json:"from"`

	// To 搜索发起方 PeerID
	To string `json:"to"`

	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// SeeYa 离开通知
type SeeYa struct {
	From string `json:"from"`
}

// Ping 存活探测
type Ping struct {
	From string `json:"from"`
}

// Pong 存活应答
type Pong struct {
	From string `json:"from"`
}

func (*Helo) Kind() Kind      { return KindHelo }
func (*Introduce) Kind() Kind { return KindIntroduce }
func (*WhoHas) Kind() Kind    { return KindWhoHas }
func (*TellTo) Kind() Kind    { return KindTellTo }
func (*SeeYa) Kind() Kind     { return KindSeeYa }
func (*Ping) Kind() Kind      { return KindPing }
func (*Pong) Kind() Kind      { return KindPong }

func (m *Helo) Sender() string      { return m.From }
func (m *Introduce) Sender() string { return m.From }
func (m *WhoHas) Sender() string    { return m.From }
func (m *TellTo) Sender() string    { return m.From }
func (m *SeeYa) Sender() string     { return m.From }
func (m *Ping) Sender() string      { return m.From }
func (m *Pong) Sender() string      { return m.From }

// Forward 返回由 hop 转发的下一跳副本（TTL 减一）
//
// 调用方必须保证 TTL > 0。
func (m *WhoHas) Forward(hop string) *WhoHas {
	return &WhoHas{
		From: m.From,
		Hop:  hop,
		ID:   m.ID,
		TTL:  m.TTL - 1,
	}
}
