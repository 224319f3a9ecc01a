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

package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/storage"
)

const maxLineSize = 1 << 20

// Paths names the flat files backing a RecordStore.
type Paths struct {
	// Records is the record file. Required.
	Records string
	// RegionInstitutions maps region names to institution identifiers. Optional.
	RegionInstitutions string
	// RegionSchools maps region names to school names. Optional.
	RegionSchools string
}

// RecordStore serves records and region tables loaded from flat files.
// It is immutable after construction and safe for concurrent use.
type RecordStore struct {
	records []core.Record
	regions storage.RegionTables
	logger  *slog.Logger
}

var _ storage.RecordStore = (*RecordStore)(nil)

// Option configures a RecordStore.
type Option func(*RecordStore) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *RecordStore) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewRecordStore loads the record file and region tables.
// A missing record file or one without a single valid record is an error.
// Missing or malformed region tables are logged and treated as empty.
//
// Returns storage.RecordStore interface to enforce abstraction.
func NewRecordStore(paths Paths, opts ...Option) (storage.RecordStore, error) {
	return newRecordStore(paths, opts...)
}

// ReadCatalog loads the record file and region tables without keeping a
// store around. Used when copying the catalog into another backend.
func ReadCatalog(paths Paths, opts ...Option) ([]core.Record, storage.RegionTables, error) {
	s, err := newRecordStore(paths, opts...)
	if err != nil {
		return nil, storage.RegionTables{}, err
	}
	return s.records, s.regions, nil
}

func newRecordStore(paths Paths, opts ...Option) (*RecordStore, error) {
	s := &RecordStore{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "file-record-store")

	f, err := os.Open(paths.Records)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", paths.Records, err)
	}
	s.records = records

	s.regions = storage.RegionTables{
		Institutions: s.loadTable(paths.RegionInstitutions, "institutions"),
		Schools:      s.loadTable(paths.RegionSchools, "schools"),
	}

	s.logger.Debug("loaded record store",
		"records", len(s.records),
		"regions", len(s.regions.Names()))
	return s, nil
}

// ReadRecords decodes records from r. Input that starts with '[' is read as a
// JSON array, anything else as one JSON object per line. Elements that fail
// to decode or validate are skipped and logged.
func ReadRecords(r io.Reader, logger *slog.Logger) ([]core.Record, error) {
	if logger == nil {
		logger = slog.Default()
	}
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, storage.ErrNoRecords
		}
		return nil, err
	}

	var records []core.Record
	if first == '[' {
		records, err = readArray(br, logger)
	} else {
		records, err = readLines(br, logger)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNoRecords
	}
	return records, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		return b, br.UnreadByte()
	}
}

// readArray decodes the array one element at a time. An element that is valid
// JSON but not a valid record is skipped. A syntax error ends the read, since
// the decoder cannot find the next element; the records before it are kept.
func readArray(r io.Reader, logger *slog.Logger) ([]core.Record, error) {
	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	var records []core.Record
	for position := 1; dec.More(); position++ {
		var elem json.RawMessage
		if err := dec.Decode(&elem); err != nil {
			if len(records) == 0 {
				return nil, fmt.Errorf("%w: element %d: %w", storage.ErrSerializationFailed, position, err)
			}
			logger.Warn("record array truncated", "position", position, "kept", len(records), "err", err)
			return records, nil
		}
		if rec, ok := decodeRecord(elem, position, logger); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// readLines decodes one record per line. Lines longer than maxLineSize are
// skipped without being buffered whole.
func readLines(r io.Reader, logger *slog.Logger) ([]core.Record, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var records []core.Record
	for line := 1; ; line++ {
		text, oversized, err := readLine(br)
		if oversized {
			logger.Warn("skipping oversized record line", "position", line, "limit", maxLineSize)
		} else if text = bytes.TrimSpace(text); len(text) > 0 {
			if rec, ok := decodeRecord(text, line, logger); ok {
				records = append(records, rec)
			}
		}
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// readLine returns the next line without its terminator. Past maxLineSize the
// rest of the line is discarded and oversized is set.
func readLine(br *bufio.Reader) (line []byte, oversized bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > maxLineSize+1 {
				oversized, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, oversized, err
	}
}

func decodeRecord(data []byte, position int, logger *slog.Logger) (core.Record, bool) {
	var rec core.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Warn("skipping malformed record", "position", position, "err", err)
		return rec, false
	}
	if err := core.ValidateRecord(&rec); err != nil {
		logger.Warn("skipping invalid record", "position", position, "err", err)
		return rec, false
	}
	return rec, true
}

func (s *RecordStore) loadTable(path, name string) map[string][]string {
	table := map[string][]string{}
	if path == "" {
		return table
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("region table unavailable", "table", name, "path", path, "err", err)
		return table
	}
	if err := json.Unmarshal(data, &table); err != nil {
		s.logger.Warn("malformed region table", "table", name, "path", path, "err", err)
		return map[string][]string{}
	}
	return table
}

// Records returns the full record set in source order.
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

// Close is a no-op; the store holds no open files.
func (s *RecordStore) Close() error {
	return nil
}
