package manual

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
)

func writeRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(ingest.ConnectorConfig{Source: entity.SourceManual, Enabled: true})
	assert.Error(t, err)
}

func TestFetchRecords(t *testing.T) {
	path := writeRecords(t, `[{"id":"m-1","name":"web-01"},{"sys_id":"m-2"}]`)
	c, err := New(ingest.ConnectorConfig{
		Source:     entity.SourceManual,
		Enabled:    true,
		Properties: map[string]any{"path": path, "record_type": "server"},
	})
	require.NoError(t, err)
	assert.Equal(t, "server", c.RecordType())

	it, err := c.FetchRecords(context.Background())
	require.NoError(t, err)

	first, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m-1", c.ExternalIDFromPayload(first))

	second, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m-2", c.ExternalIDFromPayload(second))

	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, ingest.ErrEndOfRecords)
}

func TestFetchRecordsBadFile(t *testing.T) {
	c, err := New(ingest.ConnectorConfig{
		Source:     entity.SourceManual,
		Enabled:    true,
		Properties: map[string]any{"path": "/does/not/exist.json"},
	})
	require.NoError(t, err)

	_, err = c.FetchRecords(context.Background())
	assert.Error(t, err)

	path := writeRecords(t, `{"not":"an array"}`)
	c, err = New(ingest.ConnectorConfig{
		Source:     entity.SourceManual,
		Enabled:    true,
		Properties: map[string]any{"path": path},
	})
	require.NoError(t, err)

	_, err = c.FetchRecords(context.Background())
	assert.Error(t, err)
}

func TestManualIngestEndToEnd(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := ingest.NewStore(db)
	require.NoError(t, store.AutoMigrate())

	path := writeRecords(t, `[{"id":"m-1"},{"id":"m-2"},{"id":"m-3"}]`)
	cfg := ingest.ConnectorConfig{
		Source:     entity.SourceManual,
		Enabled:    true,
		Properties: map[string]any{"path": path},
	}
	c, err := ingest.NewConnector(cfg)
	require.NoError(t, err)

	run, err := ingest.NewIngester(store, nil).Ingest(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, run.Success)

	recs, err := store.ListRecords(ingest.RecordListFilter{SyncRunID: &run.ID})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "generic", recs[0].RecordType)
}
