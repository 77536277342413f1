// Package host 管理节点的连接生命周期与消息分发
//
// Host 负责：
//
//   - 监听与拨号，确定本地 PeerID 与公网可达性
//   - 为每条连接运行一个读协程，按到达顺序解码并分发消息
//   - 连接结束、出错或超时时注销对端并发出 EvtPeerLeft
//   - 关闭时向所有邻居发送 seeya
//
// 消息按类型分发给已注册的握手、洪泛与存活检测处理器。
// 单行的协议错误（非法 JSON、未知命令、超长行）只丢弃该行，连接保持。
package host
