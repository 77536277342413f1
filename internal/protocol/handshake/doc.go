// Package handshake 实现握手与邻居介绍
//
// 每条新连接建立后双方立即发送 helo，声明自己的 PeerID、观察到的对端主机
// 以及自己是否公网可达。收到 helo 的一方登记对端，回送 letmeintr，
// 其中最多包含 3 个普通邻居与 3 个公网邻居的 PeerID（不含对端自己），
// 随后发出 EvtPeerJoined。
//
// 收到 letmeintr 的一方对候选地址排序去重，并发拨号其中尚未连接的地址，
// 单个拨号失败不影响其余候选。网络由此从种子节点逐步扩展。
package handshake
