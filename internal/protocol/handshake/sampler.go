package handshake

import (
	"math/rand"
	"sync"
	"time"
)

// Sampler 可设定种子的随机抽样器
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler 创建抽样器，seed 为 0 时使用当前时间
func NewSampler(seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample 返回 items 中最多 n 个元素的随机子集，不修改 items
func (s *Sampler) Sample(items []string, n int) []string {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	out := append([]string(nil), items...)

	s.mu.Lock()
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.mu.Unlock()

	if len(out) > n {
		out = out[:n]
	}
	return out
}
