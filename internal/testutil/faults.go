package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/docstore"
)

// ErrInjected is returned by the failing collaborators below.
var ErrInjected = errors.New("injected failure")

// FlakyBlobs wraps a Storage and fails every Put after the first n.
type FlakyBlobs struct {
	blobstore.Storage

	mu    sync.Mutex
	left  int
	Calls int
}

// NewFlakyBlobs lets n puts through before failing.
func NewFlakyBlobs(s blobstore.Storage, n int) *FlakyBlobs {
	return &FlakyBlobs{Storage: s, left: n}
}

// Put implements blobstore.Storage.
func (f *FlakyBlobs) Put(ctx context.Context, path string, data []byte) (string, error) {
	f.mu.Lock()
	f.Calls++
	if f.left == 0 {
		f.mu.Unlock()
		return "", ErrInjected
	}
	f.left--
	f.mu.Unlock()
	return f.Storage.Put(ctx, path, data)
}

// FailingWrites wraps Documents and fails every Set. Reads pass through.
type FailingWrites struct {
	docstore.Documents
}

// Set implements docstore.Documents.
func (FailingWrites) Set(context.Context, string, string, docstore.Fields, docstore.SetOption) error {
	return ErrInjected
}
