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

// Package storage provides the storage abstraction layer for pathways.
//
// This package defines the interfaces that decouple data access from the
// search and verification pipeline. Two concerns live here:
//
//   - RecordStore: read-only access to the program catalog and its region
//     lookup tables
//   - Cache: a byte-oriented key/value store with per-entry expiry that backs
//     the oracle response cache
//
// # Constructor Return Type Pattern
//
// Public constructors in the backend packages return interface types:
//
//	store, err := file.NewRecordStore(paths)   // returns storage.RecordStore
//	c, err := badger.NewCache(backend)         // returns storage.Cache
//
// # Implementations
//
//   - storage/file: loads records and region tables from flat files once
//   - storage/badger: persistent cache with native TTL and an importable
//     record catalog
//   - storage/memory: LRU cache with TTL and an in-memory record store for tests
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
