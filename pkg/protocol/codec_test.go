package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
//                              编码测试
// ============================================================================

// TestEncode_WireShapes 验证每种消息的线路外形
func TestEncode_WireShapes(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"helo", &Helo{From: "1.2.3.4:9099", To: "5.6.7.8", PublicIP: true},
			`{"helo":{"from":"1.2.3.4:9099","to":"5.6.7.8","publicip":true}}`},
		{"letmeintr", &Introduce{From: "a:1", MyFriends: []string{"b:2", "c:3"}},
			`{"cmd":"letmeintr","argv":{"from":"a:1","myfriends":["b:2","c:3"]}}`},
		{"whohas", &WhoHas{From: "a:1", Hop: "b:2", ID: "x", TTL: 10},
			`{"cmd":"whohas","argv":{"from":"a:1","hop":"b:2","id":"x","ttl":10}}`},
		{"tellto", &TellTo{From: "z:1", To: "a:1", ID: "x", Payload: json.RawMessage(`{"data":42}`)},
			`{"cmd":"tellto","argv":{"from":"z:1","to":"a:1","id":"x","payload":{"data":42}}}`},
		{"seeya", &SeeYa{From: "a:1"}, `{"cmd":"seeya","argv":{"from":"a:1"}}`},
		{"ping", &Ping{From: "a:1"}, `{"cmd":"ping","argv":{"from":"a:1"}}`},
		{"pong", &Pong{From: "a:1"}, `{"cmd":"pong","argv":{"from":"a:1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			require.NoError(t, err)
			require.Equal(t, byte('\n'), data[len(data)-1])
			assert.JSONEq(t, tt.want, string(data[:len(data)-1]))
		})
	}
}

// TestEncode_TellToEmptyPayload 空载荷编码为 {}
func TestEncode_TellToEmptyPayload(t *testing.T) {
	data, err := Encode(&TellTo{From: "z:1", To: "a:1", ID: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":{}`)
}

// TestEncode_Nil 编码空消息
func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrNilMessage)
}

// ============================================================================
//                              解码测试
// ============================================================================

// TestDecode_Commands 验证解码得到正确的具体类型
func TestDecode_Commands(t *testing.T) {
	msg, err := Decode([]byte(`{"cmd":"whohas","argv":{"from":"a:1","hop":"b:2","id":"x","ttl":3}}`))
	require.NoError(t, err)
	w, ok := msg.(*WhoHas)
	require.True(t, ok)
	assert.Equal(t, KindWhoHas, w.Kind())
	assert.Equal(t, "a:1", w.From)
	assert.Equal(t, "b:2", w.Hop)
	assert.Equal(t, 3, w.TTL)

	msg, err = Decode([]byte(`{"helo":{"from":"a:1","to":"9.9.9.9","publicip":false}}`))
	require.NoError(t, err)
	h, ok := msg.(*Helo)
	require.True(t, ok)
	assert.Equal(t, "9.9.9.9", h.To)

	msg, err = Decode([]byte(`{"cmd":"tellto","argv":{"from":"z:1","to":"a:1","id":"x","payload":{"data":42}}}`))
	require.NoError(t, err)
	tt, ok := msg.(*TellTo)
	require.True(t, ok)
	assert.JSONEq(t, `{"data":42}`, string(tt.Payload))
}

// TestDecode_Errors 验证协议错误的分类
func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"not json", `{"cmd":`, ErrMalformed},
		{"empty object", `{}`, ErrMalformed},
		{"unknown command", `{"cmd":"dance","argv":{"from":"a:1"}}`, ErrUnknownCommand},
		{"missing argv", `{"cmd":"ping"}`, ErrMalformed},
		{"missing from", `{"cmd":"ping","argv":{}}`, ErrMalformed},
		{"helo without from", `{"helo":{"to":"x"}}`, ErrMalformed},
		{"negative ttl", `{"cmd":"whohas","argv":{"from":"a:1","hop":"a:1","id":"x","ttl":-1}}`, ErrMalformed},
		{"ttl above max", `{"cmd":"whohas","argv":{"from":"a:1","hop":"a:1","id":"x","ttl":11}}`, ErrMalformed},
		{"whohas without id", `{"cmd":"whohas","argv":{"from":"a:1","hop":"a:1","ttl":1}}`, ErrMalformed},
		{"tellto without to", `{"cmd":"tellto","argv":{"from":"a:1","id":"x"}}`, ErrMalformed},
		{"bad argv type", `{"cmd":"letmeintr","argv":{"from":"a:1","myfriends":"b"}}`, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.line))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestDecode_HopDefaultsToFrom 缺省 hop 视为发起方本身
func TestDecode_HopDefaultsToFrom(t *testing.T) {
	msg, err := Decode([]byte(`{"cmd":"whohas","argv":{"from":"a:1","id":"x","ttl":10}}`))
	require.NoError(t, err)
	assert.Equal(t, "a:1", msg.(*WhoHas).Hop)
}

// TestWhoHas_Forward 转发副本只改写 hop 和 ttl
func TestWhoHas_Forward(t *testing.T) {
	orig := &WhoHas{From: "a:1", Hop: "a:1", ID: "x", TTL: 10}
	next := orig.Forward("b:2")

	assert.Equal(t, "a:1", next.From)
	assert.Equal(t, "b:2", next.Hop)
	assert.Equal(t, "x", next.ID)
	assert.Equal(t, 9, next.TTL)
	assert.Equal(t, 10, orig.TTL)
}
