// Package metrics 提供节点的 Prometheus 指标
//
// 每个节点持有独立的 prometheus.Registry，同一进程内的多个节点互不干扰。
// 所有记录方法对 nil 接收者安全，未启用指标时调用方无需判空。
//
// 指标一览（前缀为配置的 namespace）：
//
//	messages_received_total{kind}   入站消息
//	messages_sent_total{kind}       出站消息
//	send_failures_total{kind}       出站入队失败
//	protocol_errors_total{reason}   协议错误（单行丢弃）
//	flood_dropped_total{reason}     洪泛抑制（duplicate/exhausted/loopback）
//	flood_forwarded_total           whohas 转发
//	queries_total{result}           本地查询（hit/miss）
//	replies_total{action}           tellto 处理（forwarded/delivered/duplicate）
//	route_failures_total            无反向路径
//	connections_total{direction}    建立的连接
//	friends / best_friends          当前邻居数
package metrics
