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
	"slices"

	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/storage"
)

// RecordStore implements storage.RecordStore over records supplied by the caller.
type RecordStore struct {
	records []core.Record
	regions storage.RegionTables
}

var _ storage.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates a record store from records and region tables.
// The records slice is copied.
func NewRecordStore(records []core.Record, regions storage.RegionTables) *RecordStore {
	return &RecordStore{
		records: slices.Clone(records),
		regions: regions,
	}
}

// Records returns every record in insertion order.
func (s *RecordStore) Records(ctx context.Context) ([]core.Record, error) {
	return s.records, nil
}

// RecordsForRegion returns the records for a region, or every record for an empty region.
func (s *RecordStore) RecordsForRegion(ctx context.Context, region string) ([]core.Record, error) {
	return s.regions.Scope(s.records, region)
}

// Regions returns the known region names.
func (s *RecordStore) Regions(ctx context.Context) ([]string, error) {
	return s.regions.Names(), nil
}

// InstitutionsForRegion returns the institution identifiers listed for a region.
func (s *RecordStore) InstitutionsForRegion(ctx context.Context, region string) ([]string, error) {
	if !s.regions.Known(region) {
		return nil, storage.ErrUnknownRegion
	}
	ids, _ := s.regions.InstitutionsFor(region)
	return ids, nil
}

// SchoolsForRegion returns the school names listed for a region.
func (s *RecordStore) SchoolsForRegion(ctx context.Context, region string) ([]string, error) {
	if !s.regions.Known(region) {
		return nil, storage.ErrUnknownRegion
	}
	schools, _ := s.regions.SchoolsFor(region)
	return schools, nil
}

// Close is a no-op.
func (s *RecordStore) Close() error {
	return nil
}
