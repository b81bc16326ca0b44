package memory

import (
	"context"
	"sync"

	"warungpos/internal/store"
)

// KV is an in-process medium used by tests and demo mode. Values are copied
// on the way in and out so callers cannot alias the stored slices.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	value, exists := k.data[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (k *KV) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return store.ErrValidation
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	k.data[key] = stored
	return nil
}

func (k *KV) Close() error {
	return nil
}
