// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/poiesic/pathways/storage"
)

// Cache implements storage.Cache over an LRU.
type Cache struct {
	lru    *LRU[string, []byte]
	closed atomic.Bool
}

var _ storage.Cache = (*Cache)(nil)

// NewCache creates an in-memory cache holding at most capacity entries.
//
// Returns storage.Cache interface to enforce abstraction.
func NewCache(capacity int) storage.Cache {
	return newCache(capacity)
}

func newCache(capacity int) *Cache {
	return &Cache{lru: NewLRU[string, []byte](capacity)}
}

// Get returns the value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	value, ok := c.lru.Get(key)
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores a copy of value under key.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return storage.ErrStorageClosed
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.lru.Set(key, stored, ttl)
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return storage.ErrStorageClosed
	}
	c.lru.Remove(key)
	return nil
}

// Close drops every entry. The cache rejects further use.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.lru.Purge()
	return nil
}
