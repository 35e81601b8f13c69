package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/simple-preprint/pkg/preprint"
)

// LocatorScheme prefixes the locator of every object held by this backend
const LocatorScheme = "memory://"

// Backend is an in-memory implementation of the preprint.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

func (b *Backend) Name() string {
	return "memory"
}

// Store keeps a copy of the reader's bytes under key
func (b *Backend) Store(ctx context.Context, key string, reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", preprint.NewStorageError(b.Name(), key, "store", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = data
	return LocatorScheme + key, nil
}

func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[key]
	if !exists {
		return nil, preprint.NewStorageError(b.Name(), key, "open", preprint.ErrObjectNotFound)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Len reports how many objects are held
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
