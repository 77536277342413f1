package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// ErrLineTooLong 单行超过长度上限
//
// 该行已被丢弃至下一个换行符，可以继续调用 ReadLine。
var ErrLineTooLong = errors.New("line exceeds size limit")

// minLineSize bufio 缓冲区下限
const minLineSize = 16

// LineReader 换行分帧读取器
//
// 缓冲区大小固定为 maxLine+1，不会随输入增长。
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader 创建分帧读取器，maxLine <= 0 时使用 DefaultMaxLineSize
func NewLineReader(r io.Reader, maxLine int) *LineReader {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	if maxLine < minLineSize {
		maxLine = minLineSize
	}
	return &LineReader{r: bufio.NewReaderSize(r, maxLine+1)}
}

// ReadLine 返回下一条非空行（不含行尾的 \r\n）
//
// 返回的切片归调用方所有。流结束时未以换行结尾的残余数据被丢弃并返回 io.EOF。
func (lr *LineReader) ReadLine() ([]byte, error) {
	for {
		line, err := lr.r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if derr := lr.discardLine(); derr != nil {
				return nil, derr
			}
			return nil, ErrLineTooLong
		}
		if err != nil {
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
}

// discardLine 丢弃当前行的剩余部分
func (lr *LineReader) discardLine() error {
	for {
		_, err := lr.r.ReadSlice('\n')
		if err == nil {
			return nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}
