// Package idgen allocates short public order identifiers.
//
// Identifiers are 15 alphanumeric characters drawn uniformly at random.
// Generate checks each draw against the store and re-samples on collision.
// Collision resistance is probabilistic; draws are not cryptographically
// unpredictable.
package idgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/roach88/storypage/internal/docstore"
)

const (
	// Length is the number of random characters in an identifier.
	Length = 15

	// MaxAttempts bounds the draws checked against the store.
	MaxAttempts = 5

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Source returns a uniform int in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Generator draws identifiers that are free in a collection.
type Generator struct {
	docs       docstore.Documents
	collection string
	src        Source
	now        func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithSource replaces the random source.
func WithSource(src Source) Option {
	return func(g *Generator) { g.src = src }
}

// WithClock replaces the clock used for the exhaustion suffix.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator checking ids in collection.
func New(docs docstore.Documents, collection string, opts ...Option) *Generator {
	g := &Generator{
		docs:       docs,
		collection: collection,
		src:        globalSource{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns an identifier with no document in the collection.
//
// After MaxAttempts colliding draws the last draw gets a base-36
// millisecond timestamp suffix and is returned without another lookup.
// Store failures are returned as-is; nothing is written.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	var id string
	for range MaxAttempts {
		id = Draw(g.src)
		_, err := g.docs.Get(ctx, g.collection, id)
		if errors.Is(err, docstore.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check id %s: %w", id, err)
		}
	}
	return id + strconv.FormatInt(g.now().UnixMilli(), 36), nil
}

// Draw returns Length random alphanumeric characters from src.
func Draw(src Source) string {
	b := make([]byte, Length)
	for i := range b {
		b[i] = alphabet[src.IntN(len(alphabet))]
	}
	return string(b)
}

// valid reports whether s looks like a drawn identifier, with or without
// the exhaustion suffix.
func valid(s string) bool {
	if len(s) < Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
