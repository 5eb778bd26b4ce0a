// Package id 单调 ULID，用作实体 reference 与 OKX clOrdId
package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	lower   bool
}

// New lower=true 时输出小写（OKX clOrdId 只允许字母数字，大小写均可）
func New(lower bool) *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0), lower: lower}
}

func (g *Generator) NewID() string {
	g.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	g.mu.Unlock()
	if g.lower {
		return strings.ToLower(id.String())
	}
	return id.String()
}
