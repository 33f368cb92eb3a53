package testutil

import (
	"context"
	"fmt"
	"sync"
)

// FixedIDs returns predetermined order ids for deterministic tests.
//
// Thread-safety: FixedIDs is safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a generator that returns ids in order.
//
//	gen := NewFixedIDs("order000000001", "order000000002")
//	gen.Generate(ctx) // "order000000001"
//	gen.Generate(ctx) // "order000000002"
//	gen.Generate(ctx) // error: all ids exhausted
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// Generate returns the next id. Implements engine.IDGenerator.
func (g *FixedIDs) Generate(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		return "", fmt.Errorf("FixedIDs: all %d ids exhausted", len(g.ids))
	}
	id := g.ids[g.idx]
	g.idx++
	return id, nil
}
