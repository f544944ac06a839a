// Package reference issues payment references for donation attempts.
package reference

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"
)

// DefaultPrefix matches the reference scheme already known to the Paystack
// dashboard for this account.
const DefaultPrefix = "PS_"

// Generator produces references of the form <prefix><unix-millis>_<16 hex>.
// The random suffix carries 64 bits from crypto/rand so references cannot be
// enumerated from the timestamp alone.
type Generator struct {
	prefix  string
	now     func() time.Time
	random  io.Reader
	counter atomic.Uint64
}

// NewGenerator returns a Generator using crypto/rand and the wall clock.
func NewGenerator(prefix string) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix, now: time.Now, random: rand.Reader}
}

// Generate never fails. If the random source is unavailable it falls back to
// a nanosecond timestamp plus a process-wide counter.
func (g *Generator) Generate() string {
	now := g.now()

	b := make([]byte, 8)
	if _, err := io.ReadFull(g.random, b); err != nil {
		log.Printf("reference: random source unavailable, using counter fallback: %v", err)
		return fmt.Sprintf("%s%d_c%x", g.prefix, now.UnixNano(), g.counter.Add(1))
	}
	return fmt.Sprintf("%s%d_%s", g.prefix, now.UnixMilli(), hex.EncodeToString(b))
}
