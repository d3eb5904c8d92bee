// Package ordernumber generates human-readable order numbers of the form
// PREFIX + yyyyMMddHHmmss + three random digits.
package ordernumber

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
)

const (
	DefaultPrefix      = "ORD"
	DefaultMaxAttempts = 100
	timestampLayout    = "20060102150405"
)

// Checker reports whether a number is already taken.
type Checker interface {
	ExistsByOrderNumber(ctx context.Context, number string) (bool, error)
}

type Generator struct {
	prefix      string
	now         func() time.Time
	intN        func(n int) int
	maxAttempts int
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRandom replaces the suffix source. intN must return a value in [0, n).
func WithRandom(intN func(n int) int) Option {
	return func(g *Generator) { g.intN = intN }
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

func New(prefix string, opts ...Option) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	g := &Generator{
		prefix:      prefix,
		now:         func() time.Time { return time.Now().UTC() },
		intN:        rand.IntN,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a number that checker does not know yet. The timestamp is
// fixed for the call; only the suffix changes between attempts.
func (g *Generator) Generate(ctx context.Context, checker Checker) (string, error) {
	stamp := g.prefix + g.now().Format(timestampLayout)
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%03d", stamp, g.intN(1000))
		exists, err := checker.ExistsByOrderNumber(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: gave up after %d attempts", entity.ErrDuplicateOrderNumber, g.maxAttempts)
}
