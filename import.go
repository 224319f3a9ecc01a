package pathways

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/pathways/storage/badger"
	"github.com/poiesic/pathways/storage/file"
)

// ImportCatalog copies the catalog files named by paths into the BadgerDB
// database at dir, replacing any catalog stored there. It returns the number
// of records imported.
func ImportCatalog(ctx context.Context, paths file.Paths, dir string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "import")

	records, tables, err := file.ReadCatalog(paths, file.WithLogger(logger))
	if err != nil {
		return 0, err
	}

	backend, err := badger.OpenBackend(dir, false)
	if err != nil {
		return 0, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	defer backend.Close()

	repo, err := badger.NewRecordRepository(backend)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	if err := repo.Import(ctx, records, tables); err != nil {
		return 0, fmt.Errorf("import catalog: %w", err)
	}
	logger.Info("catalog imported", "records", len(records), "regions", len(tables.Names()), "dir", dir)
	return len(records), nil
}
