// Package flood 实现受控洪泛搜索与反向路径应答
//
// 发起搜索时，本节点向每个邻居发送 whohas{from:self, hop:self, id, ttl:10}。
//
// 收到 whohas 时：
//
//  1. 发起方为本节点自己时静默丢弃
//  2. 已有 ttl 不小于当前 ttl 的记录时丢弃
//  3. 在反向路径表中记录到达连接，剩余跳数为 10-ttl+1
//  4. ttl 为 0 时停止
//  5. 登记搜索记录，发出 EvtSearch，调用本地查询函数
//  6. 命中则沿反向路径回送 tellto；未命中则以 hop=self、ttl-1 转发给除 hop 外的所有邻居
//
// 第 2 至 5 步在 peerstore 中作为一个原子步骤完成。
//
// 收到 tellto 时，目标为本节点则发出 EvtResult，否则原样沿反向路径转发。
// 同一 (from, to, id) 的应答在缓存有效期内最多处理一次，转发时优先避开到达连接。
// 没有反向路径时返回 peerstore.ErrNoRoute。
package flood
