package pathways

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pathways/ai"
	"github.com/poiesic/pathways/ai/mock"
	"github.com/poiesic/pathways/config"
	"github.com/poiesic/pathways/core"
	"github.com/poiesic/pathways/storage"
	"github.com/poiesic/pathways/storage/file"
	"github.com/poiesic/pathways/storage/memory"
)

const catalogFixture = `{"institution_id":"kapiolani","program_code":"NURS-AS","description":"Practical Nursing","level":"2-Year","classification_code":"51.3901"}
{"institution_id":"manoa","program_code":"ICS-BS","description":"Computer Science","level":"4-Year","classification_code":"11.0701"}
{"institution_id":"honolulu","program_code":"PHOT-CA","description":"Digital Photography","level":"Non-Credit","classification_code":"50.0605"}
{"institution_id":"hilo","program_code":"ACC-BA","description":"Accounting","level":"4-Year","classification_code":"52.0301"}
`

func writeCatalog(t *testing.T) file.Paths {
	t.Helper()
	dir := t.TempDir()
	write := func(name, contents string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
		return path
	}
	return file.Paths{
		Records:            write("programs.jsonl", catalogFixture),
		RegionInstitutions: write("institutions.json", `{"Oahu": ["kapiolani", "manoa", "honolulu"], "Hawaii": ["hilo"]}`),
		RegionSchools:      write("schools.json", `{}`),
	}
}

func offlineConfig() *config.Config {
	cfg := config.Default()
	cfg.Offline = true
	return cfg
}

func TestNewEngine_Offline(t *testing.T) {
	engine, err := NewEngine(writeCatalog(t), WithConfig(offlineConfig()))
	require.NoError(t, err)
	defer engine.Close()

	assert.True(t, engine.Offline())
	assert.NotNil(t, engine.Store())
	assert.NotNil(t, engine.Metrics())

	regions, err := engine.Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Hawaii", "Oahu"}, regions)
}

func TestNewEngine_MissingCatalog(t *testing.T) {
	engine, err := NewEngine(file.Paths{Records: filepath.Join(t.TempDir(), "absent.jsonl")},
		WithConfig(offlineConfig()))
	assert.Error(t, err)
	assert.Nil(t, engine)
}

func TestEngine_SearchOffline(t *testing.T) {
	engine, err := NewEngine(writeCatalog(t), WithConfig(offlineConfig()))
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	results, err := engine.Search(ctx, "nursing", "", core.SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Practical Nursing", results[0].Record.Description)
	assert.Equal(t, core.MaxScore, results[0].Score)

	_, err = engine.Search(ctx, "nursing", "Atlantis", core.SearchOptions{})
	assert.ErrorIs(t, err, storage.ErrUnknownRegion)

	scoped, err := engine.Search(ctx, "nursing", "Hawaii", core.SearchOptions{})
	require.NoError(t, err)
	for _, r := range scoped {
		assert.Equal(t, "hilo", r.Record.InstitutionID)
	}
}

func TestEngine_VerifyOffline(t *testing.T) {
	engine, err := NewEngine(writeCatalog(t), WithConfig(offlineConfig()))
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	records, err := engine.Store().Records(ctx)
	require.NoError(t, err)

	verified, err := engine.VerifyPrograms(ctx, records[:1], "nursing programs", nil)
	require.NoError(t, err)
	require.Len(t, verified, 1)
	assert.True(t, verified[0].Validation.Valid)
	assert.Equal(t, core.SourceRules, verified[0].Validation.Source)

	mappings, err := engine.VerifyCareers(ctx, []core.CareerCodeSet{
		{Code: "51.3901", CareerCodes: []string{"29-2061", "35-2014"}},
	}, "nursing", nil, "Practical Nursing")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, []string{"29-2061"}, mappings[0].KeptCodes())
	require.Len(t, mappings[0].Removed, 1)
	assert.Equal(t, "35-2014", mappings[0].Removed[0].Code)
}

func TestEngine_OracleOutage(t *testing.T) {
	oracle := mock.NewMockOracle().WithCompleteFunc(func(ctx context.Context, system, user string) (string, error) {
		return "", ai.ErrUnavailable
	})
	cfg := config.Default()
	engine, err := NewEngine(writeCatalog(t),
		WithConfig(cfg),
		WithProvider(mock.NewMockProviderWithOracle(oracle)))
	require.NoError(t, err)
	defer engine.Close()
	assert.False(t, engine.Offline())

	ctx := context.Background()
	results, err := engine.Search(ctx, "nursing", "", core.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results, "failed batches score below the default minimum relevance")
	assert.Positive(t, oracle.CallCount())

	records, err := engine.Store().Records(ctx)
	require.NoError(t, err)
	verified, err := engine.VerifyPrograms(ctx, records, "nursing", nil)
	require.NoError(t, err)
	require.Len(t, verified, len(records))
	for i, v := range verified {
		assert.Equal(t, core.SourceFormat, v.Validation.Source)
		assert.False(t, v.Validation.Corrected)
		assert.Equal(t, records[i].ClassificationCode, v.Validation.ValidatedCode)
	}
}

func TestEngine_SuppliedStoreAndNoCache(t *testing.T) {
	store := memory.NewRecordStore([]core.Record{
		{InstitutionID: "maui", ProgramCode: "CULN-AS", Description: "Culinary Arts", Level: core.LevelTwoYear, ClassificationCode: "12.0503"},
	}, storage.RegionTables{})
	cfg := offlineConfig()
	cfg.Cache.Backend = config.CacheNone

	engine, err := NewEngine(file.Paths{}, WithConfig(cfg), WithRecordStore(store))
	require.NoError(t, err)
	defer engine.Close()

	results, err := engine.Search(context.Background(), "culinary", "", core.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Culinary Arts", results[0].Record.Description)
}

func TestImportCatalogAndBadgerStore(t *testing.T) {
	paths := writeCatalog(t)
	dir := filepath.Join(t.TempDir(), "pathways.db")
	ctx := context.Background()

	n, err := ImportCatalog(ctx, paths, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	cfg := offlineConfig()
	cfg.Data.Store = config.StoreBadger
	cfg.Data.Dir = dir
	cfg.Cache.Backend = config.CacheBadger
	cfg.Cache.Dir = dir

	engine, err := NewEngine(file.Paths{}, WithConfig(cfg))
	require.NoError(t, err)

	records, err := engine.Store().Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 4)

	first, err := engine.Search(ctx, "photography", "Oahu", core.SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, "Digital Photography", first[0].Record.Description)

	second, err := engine.Search(ctx, "photography", "Oahu", core.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, engine.Close())
	assert.NoError(t, engine.Close(), "close is idempotent")
}
