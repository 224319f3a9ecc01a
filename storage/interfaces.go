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

package storage

import (
	"context"
	"time"

	"github.com/poiesic/pathways/core"
)

// RecordStore provides read-only access to the program catalog.
type RecordStore interface {
	// Records returns the full record set in source order.
	Records(ctx context.Context) ([]core.Record, error)

	// RecordsForRegion returns the records belonging to a region, resolved
	// through both lookup tables. An empty region returns every record.
	// Returns ErrUnknownRegion if the region is not listed in either table.
	RecordsForRegion(ctx context.Context, region string) ([]core.Record, error)

	// Regions returns the known region names, sorted.
	Regions(ctx context.Context) ([]string, error)

	// InstitutionsForRegion returns the institution identifiers listed for a region.
	InstitutionsForRegion(ctx context.Context, region string) ([]string, error)

	// SchoolsForRegion returns the school names listed for a region.
	SchoolsForRegion(ctx context.Context, region string) ([]string, error)

	// Close releases resources held by the store.
	Close() error
}

// Cache is a key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A non-positive ttl stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
