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
	"slices"
	"strings"

	"github.com/poiesic/pathways/core"
)

// RegionTables holds the two region lookup tables: region name to institution
// identifiers and region name to school names. Region names are matched
// case-insensitively.
type RegionTables struct {
	Institutions map[string][]string
	Schools      map[string][]string
}

// Names returns every region listed in either table, sorted and deduplicated.
func (t RegionTables) Names() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0, len(t.Institutions)+len(t.Schools))
	add := func(table map[string][]string) {
		for name := range table {
			key := strings.ToLower(strings.TrimSpace(name))
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			names = append(names, name)
		}
	}
	add(t.Institutions)
	add(t.Schools)
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names
}

// InstitutionsFor returns the institution identifiers for region and whether
// the region is listed in that table.
func (t RegionTables) InstitutionsFor(region string) ([]string, bool) {
	return lookup(t.Institutions, region)
}

// SchoolsFor returns the school names for region and whether the region is
// listed in that table.
func (t RegionTables) SchoolsFor(region string) ([]string, bool) {
	return lookup(t.Schools, region)
}

// Known reports whether either table lists region.
func (t RegionTables) Known(region string) bool {
	_, okIDs := t.InstitutionsFor(region)
	_, okSchools := t.SchoolsFor(region)
	return okIDs || okSchools
}

// Scope filters records to those whose institution identifier appears in
// either table for region. An empty region returns records unchanged.
// Returns ErrUnknownRegion if neither table lists the region.
func (t RegionTables) Scope(records []core.Record, region string) ([]core.Record, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return records, nil
	}
	ids, okIDs := t.InstitutionsFor(region)
	schools, okSchools := t.SchoolsFor(region)
	if !okIDs && !okSchools {
		return nil, ErrUnknownRegion
	}

	allowed := make(map[string]struct{}, len(ids)+len(schools))
	for _, v := range ids {
		allowed[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	for _, v := range schools {
		allowed[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}

	scoped := make([]core.Record, 0)
	for _, r := range records {
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(r.InstitutionID))]; ok {
			scoped = append(scoped, r)
		}
	}
	return scoped, nil
}

func lookup(table map[string][]string, region string) ([]string, bool) {
	key := strings.ToLower(strings.TrimSpace(region))
	if key == "" {
		return nil, false
	}
	for name, values := range table {
		if strings.ToLower(strings.TrimSpace(name)) == key {
			return values, true
		}
	}
	return nil, false
}
