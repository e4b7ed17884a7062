package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, NewStore(db).AutoMigrate())
	return db
}

// fakeConnector yields fixed payloads, optionally failing partway through.
type fakeConnector struct {
	cfg      ConnectorConfig
	payloads []map[string]any
	failAt   int // 1-based position to fail at; 0 means never
}

func (f *fakeConnector) Config() ConnectorConfig { return f.cfg }
func (f *fakeConnector) RecordType() string      { return "test_record" }

func (f *fakeConnector) ExternalIDFromPayload(p map[string]any) string {
	id, _ := p["id"].(string)
	return id
}

func (f *fakeConnector) FetchRecords(ctx context.Context) (RecordIterator, error) {
	return &failingIterator{payloads: f.payloads, failAt: f.failAt}, nil
}

type failingIterator struct {
	payloads []map[string]any
	failAt   int
	pos      int
}

func (it *failingIterator) Next(ctx context.Context) (map[string]any, error) {
	it.pos++
	if it.failAt > 0 && it.pos == it.failAt {
		return nil, errors.New("source connection reset")
	}
	if it.pos > len(it.payloads) {
		return nil, ErrEndOfRecords
	}
	return it.payloads[it.pos-1], nil
}

func enabledConfig(source entity.SourceSystem) ConnectorConfig {
	return ConnectorConfig{Source: source, Enabled: true}
}

func TestIngestSuccess(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ing := NewIngester(store, nil)

	conn := &fakeConnector{
		cfg: enabledConfig(entity.SourceServiceNow),
		payloads: []map[string]any{
			{"id": "sys_1", "name": "web-01"},
			{"id": "sys_2", "name": "web-02"},
		},
	}

	run, err := ing.Ingest(context.Background(), conn)
	require.NoError(t, err)
	assert.True(t, run.Success)
	require.NotNil(t, run.FinishedAt)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
	assert.Equal(t, "Ingest complete. 2 records.", run.Summary)
	assert.Empty(t, run.Error)

	recs, err := store.ListRecords(RecordListFilter{SyncRunID: &run.ID})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "sys_1", recs[0].ExternalID)
	assert.Equal(t, "test_record", recs[0].RecordType)
	assert.False(t, recs[0].Processed)
	assert.Equal(t, "web-01", recs[0].Payload["name"])
}

func TestIngestFailureKeepsPrefix(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ing := NewIngester(store, nil)

	conn := &fakeConnector{
		cfg: enabledConfig(entity.SourceServiceNow),
		payloads: []map[string]any{
			{"id": "sys_1"},
			{"id": "sys_2"},
			{"id": "sys_3"},
		},
		failAt: 2,
	}

	run, err := ing.Ingest(context.Background(), conn)
	var fail *IngestionFailure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, entity.SourceServiceNow, fail.Source)

	require.NotNil(t, run)
	assert.False(t, run.Success)
	require.NotNil(t, run.FinishedAt)
	assert.Contains(t, run.Error, "source connection reset")

	// The record fetched before the failure stays persisted.
	recs, err := store.ListRecords(RecordListFilter{SyncRunID: &run.ID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "sys_1", recs[0].ExternalID)
}

func TestIngestDisabledConnector(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ing := NewIngester(store, nil)

	conn := &fakeConnector{cfg: ConnectorConfig{Source: entity.SourceOkta, Enabled: false}}

	_, err := ing.Ingest(context.Background(), conn)
	assert.ErrorIs(t, err, ErrConnectorDisabled)

	// No run is recorded for a disabled connector.
	runs, err := store.ListRuns(RunListFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestIngestEmptySource(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ing := NewIngester(store, nil)

	conn := &fakeConnector{cfg: enabledConfig(entity.SourceAWS)}

	run, err := ing.Ingest(context.Background(), conn)
	require.NoError(t, err)
	assert.True(t, run.Success)
	assert.Equal(t, "Ingest complete. 0 records.", run.Summary)
}

func TestIngestCancelledContext(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ing := NewIngester(store, nil)

	conn := &sliceConnector{
		cfg:      enabledConfig(entity.SourceAWS),
		payloads: []map[string]any{{"id": "i-1"}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := ing.Ingest(ctx, conn)
	var fail *IngestionFailure
	require.ErrorAs(t, err, &fail)
	assert.False(t, run.Success)
}

// sliceConnector uses the real SliceIterator, which honors ctx cancellation.
type sliceConnector struct {
	cfg      ConnectorConfig
	payloads []map[string]any
}

func (s *sliceConnector) Config() ConnectorConfig { return s.cfg }
func (s *sliceConnector) RecordType() string      { return "test_record" }

func (s *sliceConnector) ExternalIDFromPayload(p map[string]any) string {
	id, _ := p["id"].(string)
	return id
}

func (s *sliceConnector) FetchRecords(ctx context.Context) (RecordIterator, error) {
	return NewSliceIterator(s.payloads), nil
}

func TestListRunsNewestFirstWithFilter(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ing := NewIngester(store, nil)

	_, err := ing.Ingest(context.Background(), &fakeConnector{cfg: enabledConfig(entity.SourceServiceNow)})
	require.NoError(t, err)
	_, err = ing.Ingest(context.Background(), &fakeConnector{cfg: enabledConfig(entity.SourceOkta)})
	require.NoError(t, err)

	runs, err := store.ListRuns(RunListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	src := entity.SourceOkta
	runs, err = store.ListRuns(RunListFilter{Source: &src})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, entity.SourceOkta, runs[0].Source)
}
