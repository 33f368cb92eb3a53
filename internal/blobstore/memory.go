package blobstore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Memory keeps blobs in a map. For scenarios and tests.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	blobs   map[string][]byte
}

// NewMemory creates an empty store serving URLs under baseURL.
func NewMemory(baseURL string) *Memory {
	return &Memory{baseURL: strings.TrimRight(baseURL, "/"), blobs: make(map[string][]byte)}
}

// Put implements Storage.
func (m *Memory) Put(ctx context.Context, p string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[p] = append([]byte(nil), data...)
	return m.baseURL + "/" + p, nil
}

// Paths lists stored paths in sorted order.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.blobs))
}
