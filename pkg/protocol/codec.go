package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrMalformed 消息不是合法的 JSON 或缺少必需字段
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownCommand 未知命令
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNilMessage 编码空消息
	ErrNilMessage = errors.New("nil message")
)

// emptyPayload 应答缺省载荷
var emptyPayload = json.RawMessage("{}")

// envelope 线路外层结构
type envelope struct {
	Helo *Helo           `json:"helo,omitempty"`
	Cmd  string          `json:"cmd,omitempty"`
	Argv json.RawMessage `json:"argv,omitempty"`
}

// ============================================================================
//                              编码
// ============================================================================

// Encode 将消息编码为一行 JSON（包含结尾换行符）
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}

	var env envelope
	switch msg := m.(type) {
	case *Helo:
		env.Helo = msg
	case *TellTo:
		cp := *msg
		if len(cp.Payload) == 0 {
			cp.Payload = emptyPayload
		}
		argv, err := json.Marshal(&cp)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
		}
		env.Cmd, env.Argv = CmdTellTo, argv
	default:
		argv, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
		}
		env.Cmd, env.Argv = m.Kind().String(), argv
	}

	data, err := json.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	return append(data, '\n'), nil
}

// ============================================================================
//                              解码
// ============================================================================

// Decode 解析一行 JSON
//
// 错误只影响当前行：返回的错误包装 ErrMalformed 或 ErrUnknownCommand。
func Decode(line []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if env.Helo != nil {
		if env.Helo.From == "" {
			return nil, fmt.Errorf("%w: helo without from", ErrMalformed)
		}
		return env.Helo, nil
	}

	if env.Cmd == "" {
		return nil, fmt.Errorf("%w: neither helo nor cmd", ErrMalformed)
	}

	var m Message
	switch env.Cmd {
	case CmdIntroduce:
		m = &Introduce{}
	case CmdWhoHas:
		m = &WhoHas{}
	case CmdTellTo:
		m = &TellTo{}
	case CmdSeeYa:
		m = &SeeYa{}
	case CmdPing:
		m = &Ping{}
	case CmdPong:
		m = &Pong{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Cmd)
	}

	if len(env.Argv) == 0 {
		return nil, fmt.Errorf("%w: %s without argv", ErrMalformed, env.Cmd)
	}
	if err := json.Unmarshal(env.Argv, m); err != nil {
		return nil, fmt.Errorf("%w: %s argv: %v", ErrMalformed, env.Cmd, err)
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// validate 校验必需字段
func validate(m Message) error {
	if m.Sender() == "" {
		return fmt.Errorf("%w: %s without from", ErrMalformed, m.Kind())
	}

	switch msg := m.(type) {
	case *WhoHas:
		if msg.ID == "" {
			return fmt.Errorf("%w: whohas without id", ErrMalformed)
		}
		if msg.TTL < 0 || msg.TTL > MaxTTL {
			return fmt.Errorf("%w: whohas ttl %d out of range", ErrMalformed, msg.TTL)
		}
		if msg.Hop == "" {
			msg.Hop = msg.From
		}
	case *TellTo:
		if msg.To == "" || msg.ID == "" {
			return fmt.Errorf("%w: tellto without to/id", ErrMalformed)
		}
	}
	return nil
}
