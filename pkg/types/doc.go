// Package types 定义 peerflood 对外可见的数据类型
//
// 主要是事件总线上流转的事件结构。事件以值类型发射，订阅时传入对应的指针类型：
//
//	sub, _ := bus.Subscribe(new(types.EvtResult))
//	for e := range sub.Out() {
//	    evt := e.(types.EvtResult)
//	}
package types
