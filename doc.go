// Package peerflood 提供洪泛搜索覆盖网络节点
//
// 每个节点与一部分其他节点（邻居）保持 TCP 长连接，连接上交换
// 以换行分隔的 JSON 消息。搜索请求以递减的 ttl 向外洪泛，
// 命中应答沿搜索留下的反向路径送回发起方。
//
// # 快速开始
//
//	node, err := peerflood.New(peerflood.WithListenAddr("0.0.0.0:9099"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := node.Listen(ctx, ""); err != nil {
//	    log.Fatal(err)
//	}
//	_ = node.Connect(ctx, "203.0.113.5:9099")
//
//	// 提供数据
//	node.SetQuery(func(id string) (any, bool) {
//	    v, ok := store[id]
//	    return v, ok
//	})
//
//	// 搜索并等待结果
//	sub, _ := node.Subscribe(new(peerflood.EvtResult))
//	_ = node.Search("x")
//	ev := (<-sub.Out()).(peerflood.EvtResult)
//
// # 事件
//
// Subscribe 可订阅以下事件，同一节点的事件按发生顺序投递：
//
//   - EvtListening: 开始监听，携带本地 PeerID
//   - EvtPeerJoined: 收到新邻居的问候
//   - EvtPeerLeft: 邻居断开
//   - EvtSearch: 观察到新的搜索请求
//   - EvtResult: 本地发起的搜索收到命中
//   - EvtPing: 收到邻居的 ping
//
// # 包结构
//
//	peerflood/              用户 API（Node）
//	config/                 统一配置
//	cmd/peerflood/          命令行节点
//	internal/core/          传输、状态存储、主机、事件总线、指标、外部地址查询
//	internal/protocol/      握手介绍、洪泛搜索、存活检测
//	pkg/protocol/           线路消息与分帧
//	pkg/interfaces/         跨包接口
//	pkg/types/              事件类型
package peerflood
