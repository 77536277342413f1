package config

import "errors"

// 配置校验错误
var (
	// ErrEmptyAddress 地址为空
	ErrEmptyAddress = errors.New("address must not be empty")

	// ErrNonPositive 数值必须为正
	ErrNonPositive = errors.New("value must be positive")

	// ErrOutOfRange 数值超出范围
	ErrOutOfRange = errors.New("value out of range")

	// ErrInvalidValue 取值非法
	ErrInvalidValue = errors.New("invalid value")
)
