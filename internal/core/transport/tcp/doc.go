// Package tcp 提供基于 TCP 的行分帧传输
//
// 每条 TCP 连接被包装为 Conn：入站方向按换行分帧并解码为 protocol.Message，
// 出站方向经有界发送队列由独立的写协程串行写出。调用 Send 的一方不会在
// 网络 I/O 上阻塞，队列满时返回 ErrSendQueueFull。
//
// 连接携带传输层读超时（IdleTimeout），超时在 ReadMessage 中以错误返回，
// 与应用层的 ping/pong 新鲜度阈值相互独立。
//
// Listener 使用 netutil.LimitListener 限制同时存在的入站连接数。
package tcp
