// Package eventbus 实现进程内事件总线
//
// peerflood 的应用层通知（listening / peer / end / ping / search / result）
// 都经由本总线投递。每个节点实例持有独立的 Bus。
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe([]interface{}{new(types.EvtSearch), new(types.EvtResult)})
//	defer sub.Close()
//
//	em, _ := bus.Emitter(new(types.EvtResult))
//	defer em.Close()
//	em.Emit(types.EvtResult{ID: "x"})
//
// # 投递语义
//
// 发射在总线级互斥下完成，因此同一总线上的所有事件对每个订阅者都保持发射顺序。
// 发射从不阻塞：订阅者缓冲区已满时事件被丢弃并计数，
// 每丢弃 100 个记录一次慢消费者警告。
package eventbus
