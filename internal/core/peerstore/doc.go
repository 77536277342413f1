// Package peerstore 维护对等节点的共享状态
//
// Store 集中保存四类可变状态：
//
//   - 邻居表（friends）：PeerID 到连接、最近存活时间、公网可达标志的映射
//   - 公网邻居（best friends）：邻居表中 Public 为 true 的子集，随邻居表派生
//   - 反向路径表：按搜索发起方记录可用于回传应答的 (连接, 剩余跳数) 候选
//   - 搜索记录：按发起方保存已见过的 (searchID, ttl)，用于洪泛去重
//
// 所有变更都在同一把锁内一次完成，并发读者不会看到半更新的状态
// （例如邻居已登记但其反向路径尚未初始化）。锁内不做任何网络 I/O。
//
// 非邻居发起方的反向路径与搜索记录在其最后一条路径被剥离时一并回收，
// 单个发起方的搜索记录数由 LRU 限制。
package peerstore
