package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dep2p/go-peerflood"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("usage")
)

// command 解析后的控制台命令
type command struct {
	name string
	id   string
	data json.RawMessage
}

// parseCommand 解析一行控制台输入，空行返回零值
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "peers", "quit", "exit":
		if name == "exit" {
			name = "quit"
		}
		return command{name: name}, nil
	case "search", "unprovide":
		if rest == "" || strings.ContainsAny(rest, " \t") {
			return command{}, fmt.Errorf("%w: %s <id>", errUsage, name)
		}
		return command{name: name, id: rest}, nil
	case "provide":
		id, data, _ := strings.Cut(rest, " ")
		data = strings.TrimSpace(data)
		if id == "" || data == "" {
			return command{}, fmt.Errorf("%w: provide <id> <json>", errUsage)
		}
		if !json.Valid([]byte(data)) {
			return command{}, fmt.Errorf("%w: provide: invalid json", errUsage)
		}
		return command{name: name, id: id, data: json.RawMessage(data)}, nil
	default:
		return command{}, fmt.Errorf("%w: %q", errUnknownCommand, name)
	}
}

// provider 本地提供的数据，作为节点的查询函数
type provider struct {
	mu    sync.RWMutex
	items map[string]json.RawMessage
}

func newProvider() *provider {
	return &provider{items: make(map[string]json.RawMessage)}
}

func (p *provider) provide(id string, data json.RawMessage) {
	p.mu.Lock()
	p.items[id] = data
	p.mu.Unlock()
}

func (p *provider) unprovide(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.items[id]
	delete(p.items, id)
	return ok
}

// query 实现 peerflood.QueryFunc
func (p *provider) query(id string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.items[id]
	return data, ok
}

// console 标准输入控制台
type console struct {
	node     *peerflood.Node
	out      io.Writer
	provider *provider
}

func newConsole(node *peerflood.Node, out io.Writer) *console {
	c := &console{node: node, out: out, provider: newProvider()}
	node.SetQuery(c.provider.query)
	return c
}

// watch 订阅全部事件并打印
func (c *console) watch() error {
	sub, err := c.node.Subscribe(
		new(peerflood.EvtListening),
		new(peerflood.EvtPeerJoined),
		new(peerflood.EvtPeerLeft),
		new(peerflood.EvtSearch),
		new(peerflood.EvtResult),
		new(peerflood.EvtPing),
	)
	if err != nil {
		return err
	}
	go func() {
		for ev := range sub.Out() {
			if line := formatEvent(ev); line != "" {
				fmt.Fprintln(c.out, line)
			}
		}
	}()
	return nil
}

func formatEvent(ev any) string {
	switch e := ev.(type) {
	case peerflood.EvtListening:
		return fmt.Sprintf("[listening] %s public=%v", e.PeerID, e.Public)
	case peerflood.EvtPeerJoined:
		return fmt.Sprintf("[peer] %s public=%v", e.PeerID, e.Public)
	case peerflood.EvtPeerLeft:
		return fmt.Sprintf("[end] %s", e.PeerID)
	case peerflood.EvtSearch:
		return fmt.Sprintf("[search] %s from %s ttl=%d", e.ID, e.Originator, e.TTL)
	case peerflood.EvtResult:
		return fmt.Sprintf("[result] %s from %s: %s", e.ID, e.From, e.Payload)
	case peerflood.EvtPing:
		return fmt.Sprintf("[ping] %s", e.From)
	default:
		return ""
	}
}

// repl 逐行执行命令，直到 quit 或输入结束
func (c *console) repl(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintln(c.out, err)
			continue
		}
		if cmd.name == "quit" {
			return
		}
		c.exec(cmd)
	}
}

func (c *console) exec(cmd command) {
	switch cmd.name {
	case "":
	case "search":
		if err := c.node.Search(cmd.id); err != nil {
			fmt.Fprintf(c.out, "搜索失败: %v\n", err)
		}
	case "provide":
		c.provider.provide(cmd.id, cmd.data)
		fmt.Fprintf(c.out, "已提供 %s\n", cmd.id)
	case "unprovide":
		if !c.provider.unprovide(cmd.id) {
			fmt.Fprintf(c.out, "未提供 %s\n", cmd.id)
		}
	case "peers":
		best := make(map[string]bool)
		for _, id := range c.node.BestFriends() {
			best[id] = true
		}
		for _, id := range c.node.Friends() {
			mark := ""
			if best[id] {
				mark = " *"
			}
			fmt.Fprintf(c.out, "%s%s\n", id, mark)
		}
	}
}
