package testutil

import "errors"

// ErrMockClosed mock 连接已关闭
var ErrMockClosed = errors.New("mock connection closed")
