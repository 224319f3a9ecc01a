package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/storage"
)

// RecordRepository keeps an imported copy of the program catalog and its
// region tables in BadgerDB, so later runs skip parsing the flat files.
type RecordRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.RecordStore = (*RecordRepository)(nil)

// NewRecordRepository creates a RecordRepository over an open backend.
func NewRecordRepository(backend *Backend) (*RecordRepository, error) {
	idSeq, err := backend.GetSequence(programRecordIDSeq)
	if err != nil {
		return nil, err
	}
	return &RecordRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *RecordRepository) Close() error {
	return r.idSeq.Release()
}

// Import replaces the stored catalog with records and tables.
// Records are written in order; invalid records are rejected before anything
// is written. The import is not atomic: a failure part way leaves a partial
// catalog that the next Import replaces.
func (r *RecordRepository) Import(ctx context.Context, records []core.Record, tables storage.RegionTables) error {
	for i := range records {
		if err := core.ValidateRecord(&records[i]); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := r.backend.DropPrefix(programRecordPrefix, regionTablePrefix); err != nil {
		return err
	}

	wb := r.backend.NewWriteBatch()
	defer wb.Cancel()

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		seq, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		value, err := storage.MarshalValue(record)
		if err != nil {
			return err
		}
		if err := wb.Set(makeProgramRecordKey(seq), value); err != nil {
			return err
		}
	}

	for key, table := range map[string]map[string][]string{
		regionInstitutions: tables.Institutions,
		regionSchools:      tables.Schools,
	} {
		if table == nil {
			table = map[string][]string{}
		}
		value, err := storage.MarshalValue(table)
		if err != nil {
			return err
		}
		if err := wb.Set([]byte(key), value); err != nil {
			return err
		}
	}

	if err := wb.Flush(); err != nil {
		return err
	}
	r.backend.logger.Debug("imported records", "records", len(records))
	return nil
}

// Records returns the stored records in import order.
// Returns storage.ErrNoRecords if nothing has been imported.
func (r *RecordRepository) Records(ctx context.Context) ([]core.Record, error) {
	var records []core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(programRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if !bytes.HasPrefix(iter.Item().Key(), opts.Prefix) {
				break
			}
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalValue[core.Record](val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNoRecords
	}
	return records, nil
}

// RecordsForRegion returns the records for a region, or every record for an empty region.
func (r *RecordRepository) RecordsForRegion(ctx context.Context, region string) ([]core.Record, error) {
	tables, err := r.tables()
	if err != nil {
		return nil, err
	}
	records, err := r.Records(ctx)
	if err != nil {
		return nil, err
	}
	return tables.Scope(records, region)
}

// Regions returns the known region names.
func (r *RecordRepository) Regions(ctx context.Context) ([]string, error) {
	tables, err := r.tables()
	if err != nil {
		return nil, err
	}
	return tables.Names(), nil
}

// InstitutionsForRegion returns the institution identifiers listed for a region.
func (r *RecordRepository) InstitutionsForRegion(ctx context.Context, region string) ([]string, error) {
	tables, err := r.tables()
	if err != nil {
		return nil, err
	}
	if !tables.Known(region) {
		return nil, storage.ErrUnknownRegion
	}
	ids, _ := tables.InstitutionsFor(region)
	return ids, nil
}

// SchoolsForRegion returns the school names listed for a region.
func (r *RecordRepository) SchoolsForRegion(ctx context.Context, region string) ([]string, error) {
	tables, err := r.tables()
	if err != nil {
		return nil, err
	}
	if !tables.Known(region) {
		return nil, storage.ErrUnknownRegion
	}
	schools, _ := tables.SchoolsFor(region)
	return schools, nil
}

func (r *RecordRepository) tables() (storage.RegionTables, error) {
	var tables storage.RegionTables
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		if tables.Institutions, err = readTable(tx, regionInstitutions); err != nil {
			return err
		}
		tables.Schools, err = readTable(tx, regionSchools)
		return err
	}, false)
	return tables, err
}

func readTable(tx *badger.Txn, key string) (map[string][]string, error) {
	item, err := tx.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return map[string][]string{}, nil
		}
		return nil, err
	}
	var table map[string][]string
	err = item.Value(func(val []byte) error {
		var err error
		table, err = storage.UnmarshalValue[map[string][]string](val)
		return err
	})
	return table, err
}
