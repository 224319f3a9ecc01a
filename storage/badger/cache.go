package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pathways/storage"
)

// Cache implements storage.Cache on BadgerDB. Expiry uses badger's native
// per-entry TTL, so expired entries disappear without a sweeper.
type Cache struct {
	backend *Backend
}

var _ storage.Cache = (*Cache)(nil)

// NewCache creates a cache over an open backend.
// The backend is owned by the caller; Close does not close it.
//
// Returns storage.Cache interface to enforce abstraction.
func NewCache(backend *Backend) (storage.Cache, error) {
	return newCache(backend)
}

func newCache(backend *Backend) (*Cache, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &Cache{backend: backend}, nil
}

// Get returns the value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var value []byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)
	return value, err
}

// Set stores value under key in its own transaction.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return c.backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
		entry := badger.NewEntry(makeCacheKey(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return tx.SetEntry(entry)
	})
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return c.backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
		return tx.Delete(makeCacheKey(key))
	})
}

// Close is a no-op; the backend is closed by its owner.
func (c *Cache) Close() error {
	return nil
}
