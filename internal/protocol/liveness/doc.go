// Package liveness 实现邻居存活检测
//
// 监控循环按固定周期（默认 25s）检查邻居表，向最近存活时间早于阈值
// （默认 128s）的邻居各发送一次 ping。收到 ping 时发出 EvtPing 并立即回送 pong；
// 收到 pong 时刷新对端的存活时间。
//
// 收到 seeya 时向对端发送一次 ping 以确认其可达，发送失败则主动断开并注销。
package liveness
