package cache

import (
	"context"
	"time"
)

// CollectionCache holds serialized hot-read collections (the menu, mostly)
// for rendering clients. Entries are invalidated whenever the underlying
// collection is replaced.
type CollectionCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopCollectionCache struct{}

func (NoopCollectionCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopCollectionCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (NoopCollectionCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
