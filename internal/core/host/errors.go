package host

import "errors"

var (
	// ErrClosed Host 已关闭
	ErrClosed = errors.New("host closed")

	// ErrNotListening 尚未监听
	ErrNotListening = errors.New("host not listening")

	// ErrAlreadyListening 重复监听
	ErrAlreadyListening = errors.New("host already listening")

	// ErrInvalidAddr 地址不是可拨号的 host:port
	ErrInvalidAddr = errors.New("invalid dial address")

	// ErrSelfDial 拨号本地地址
	ErrSelfDial = errors.New("dial to self")

	// ErrAlreadyConnected 地址已连接
	ErrAlreadyConnected = errors.New("already connected")

	// ErrDialInProgress 同一地址的拨号正在进行
	ErrDialInProgress = errors.New("dial already in progress")

	// ErrNoHandler 消息类型没有处理器
	ErrNoHandler = errors.New("no handler for message")

	// ErrNilTransport 缺少传输层
	ErrNilTransport = errors.New("transport is nil")

	// ErrNilStore 缺少状态存储
	ErrNilStore = errors.New("store is nil")

	// ErrNilEventBus 缺少事件总线
	ErrNilEventBus = errors.New("event bus is nil")
)
