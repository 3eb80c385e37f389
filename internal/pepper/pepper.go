// Package pepper produces the secret random values that hide a committed input.
package pepper

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	// MinLength is the shortest pepper accepted anywhere (128-bit hiding).
	MinLength = 16
	// DefaultLength is the pepper size used when none is configured.
	DefaultLength = 32
)

var (
	// ErrEntropySourceUnavailable is returned when the secure source cannot be read.
	ErrEntropySourceUnavailable = errors.New("entropy source unavailable")
	// ErrInvalidLength is returned for lengths below MinLength.
	ErrInvalidLength = errors.New("invalid pepper length")
)

// Generator reads peppers from a cryptographically secure source.
// It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	source io.Reader
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{source: rand.Reader}
}

// NewGeneratorFromReader returns a Generator reading from source.
// Tests use it to inject fixed byte streams.
func NewGeneratorFromReader(source io.Reader) *Generator {
	return &Generator{source: source}
}

// Generate returns length fresh random bytes.
func (g *Generator) Generate(length int) ([]byte, error) {
	if length < MinLength {
		return nil, fmt.Errorf("%w: %d < %d", ErrInvalidLength, length, MinLength)
	}

	buf := make([]byte, length)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.source == nil {
		return nil, fmt.Errorf("%w: no source configured", ErrEntropySourceUnavailable)
	}
	if _, err := io.ReadFull(g.source, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropySourceUnavailable, err)
	}
	return buf, nil
}

// GenerateContext is Generate bounded by ctx. A source that does not answer
// before ctx is done is reported as unavailable.
func (g *Generator) GenerateContext(ctx context.Context, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropySourceUnavailable, err)
	}

	type result struct {
		b   []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := g.Generate(length)
		ch <- result{b, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrEntropySourceUnavailable, ctx.Err())
	case r := <-ch:
		return r.b, r.err
	}
}
