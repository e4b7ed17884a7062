package normalize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/graph"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
)

func setupEnv(t *testing.T) (*Env, *ingest.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	reg := entity.NewRegistry(db)
	res := entity.NewResolver(db)
	gr := graph.NewStore(db)
	store := ingest.NewStore(db)
	require.NoError(t, reg.AutoMigrate())
	require.NoError(t, res.AutoMigrate())
	require.NoError(t, gr.AutoMigrate())
	require.NoError(t, store.AutoMigrate())

	return NewEnv(reg, res, gr, nil), store
}

func storedRecord(t *testing.T, store *ingest.Store, source entity.SourceSystem, recordType string, payload map[string]any) *ingest.RawRecord {
	t.Helper()
	run, err := store.CreateRun(source)
	require.NoError(t, err)
	rec := &ingest.RawRecord{
		SyncRunID:  &run.ID,
		Source:     source,
		RecordType: recordType,
		Payload:    entity.JSONAny(payload),
	}
	require.NoError(t, store.AppendRecord(rec))
	require.NoError(t, store.FinishRun(run.ID, true, "", ""))
	return rec
}

func TestProcessOneSuccess(t *testing.T) {
	env, store := setupEnv(t)
	p := NewPipeline(env, store, DefaultConfig(), nil)

	Register(entity.SourceFlexera, "flexera_asset", NormalizerFunc(
		func(ctx context.Context, e *Env, rec *ingest.RawRecord) error {
			name, _ := rec.Payload["name"].(string)
			_, _, err := e.ResolveOrCreateAsset(rec.Source, "", "", entity.AssetServer, name)
			return err
		}))

	rec := storedRecord(t, store, entity.SourceFlexera, "flexera_asset", map[string]any{"name": "web-01"})
	require.NoError(t, p.ProcessOne(context.Background(), rec))

	got, err := store.GetRecord(rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)

	_, err = env.Registry.GetAssetByKey(entity.AssetServer, "web-01")
	require.NoError(t, err)
}

func TestProcessOneMissingNormalizer(t *testing.T) {
	env, store := setupEnv(t)
	p := NewPipeline(env, store, DefaultConfig(), nil)

	rec := storedRecord(t, store, entity.SourceDuo, "unmapped_type", map[string]any{})

	err := p.ProcessOne(context.Background(), rec)
	var fail *NormalizationFailure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, rec.ID, fail.RecordID)

	got, err := store.GetRecord(rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Processed)
	assert.Contains(t, got.ProcessingError, "no normalizer registered")
}

func TestProcessOneNormalizerError(t *testing.T) {
	env, store := setupEnv(t)
	p := NewPipeline(env, store, DefaultConfig(), nil)

	boom := errors.New("payload missing required field")
	Register(entity.SourceAzure, "azure_vm", NormalizerFunc(
		func(ctx context.Context, e *Env, rec *ingest.RawRecord) error {
			return boom
		}))

	rec := storedRecord(t, store, entity.SourceAzure, "azure_vm", map[string]any{})

	err := p.ProcessOne(context.Background(), rec)
	var fail *NormalizationFailure
	require.ErrorAs(t, err, &fail)
	assert.ErrorIs(t, fail, boom)

	got, err := store.GetRecord(rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Processed)
	assert.Equal(t, boom.Error(), got.ProcessingError)
}

func TestProcessAvailableCountsSuccesses(t *testing.T) {
	env, store := setupEnv(t)
	p := NewPipeline(env, store, DefaultConfig(), nil)

	Register(entity.SourceGCP, "gcp_instance", NormalizerFunc(
		func(ctx context.Context, e *Env, rec *ingest.RawRecord) error {
			name, _ := rec.Payload["name"].(string)
			_, _, err := e.ResolveOrCreateAsset(rec.Source, "", "", entity.AssetVM, name)
			return err
		}))

	storedRecord(t, store, entity.SourceGCP, "gcp_instance", map[string]any{"name": "app-01"})
	storedRecord(t, store, entity.SourceGCP, "gcp_instance", map[string]any{"name": "app-02"})
	storedRecord(t, store, entity.SourceGCP, "gcp_unmapped", map[string]any{})

	n, err := p.ProcessAvailable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The unmapped record is parked as failed, not retried within the pass.
	failed, err := store.ListRecords(ingest.RecordListFilter{FailedOnly: true})
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestProcessAvailableTerminatesWithFailingRecord(t *testing.T) {
	env, store := setupEnv(t)
	p := NewPipeline(env, store, DefaultConfig(), nil)

	// No normalizer is registered for this record type, so every attempt
	// fails. The pass must park it and return instead of re-claiming it.
	rec := storedRecord(t, store, entity.SourceDuo, "duo_unmapped", map[string]any{})

	done := make(chan struct{})
	var n int
	var err error
	go func() {
		n, err = p.ProcessAvailable(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("ProcessAvailable did not return with a failing record in the queue")
	}
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := store.GetRecord(rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Processed)
	assert.NotNil(t, got.ClaimedAt)
	assert.Contains(t, got.ProcessingError, "no normalizer registered")
}

func TestReprocessingIsIdempotent(t *testing.T) {
	env, store := setupEnv(t)
	p := NewPipeline(env, store, DefaultConfig(), nil)

	Register(entity.SourceAD, "ad_computer", NormalizerFunc(
		func(ctx context.Context, e *Env, rec *ingest.RawRecord) error {
			id, _ := rec.Payload["objectGUID"].(string)
			name, _ := rec.Payload["name"].(string)
			_, _, err := e.ResolveOrCreateAsset(rec.Source, id, "objectGUID", entity.AssetEndpoint, name)
			return err
		}))

	payload := map[string]any{"objectGUID": "guid-1", "name": "laptop-01"}
	first := storedRecord(t, store, entity.SourceAD, "ad_computer", payload)
	second := storedRecord(t, store, entity.SourceAD, "ad_computer", payload)

	require.NoError(t, p.ProcessOne(context.Background(), first))
	require.NoError(t, p.ProcessOne(context.Background(), second))

	assets, err := env.Registry.ListAssets(entity.AssetListFilter{})
	require.NoError(t, err)
	assert.Len(t, assets, 1)

	ids, err := env.Resolver.ExternalIDsOf(assets[0].Ref())
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestProcessAvailableHonorsContext(t *testing.T) {
	env, store := setupEnv(t)
	p := NewPipeline(env, store, DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessAvailable(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerPoolDrainsQueue(t *testing.T) {
	env, store := setupEnv(t)

	Register(entity.SourceOther, "other_asset", NormalizerFunc(
		func(ctx context.Context, e *Env, rec *ingest.RawRecord) error {
			name, _ := rec.Payload["name"].(string)
			_, _, err := e.ResolveOrCreateAsset(rec.Source, "", "", entity.AssetOther, name)
			return err
		}))

	storedRecord(t, store, entity.SourceOther, "other_asset", map[string]any{"name": "thing-1"})
	storedRecord(t, store, entity.SourceOther, "other_asset", map[string]any{"name": "thing-2"})

	cfg := &Config{Concurrency: 2, PollInterval: 10 * time.Millisecond, ClaimTimeout: time.Minute, Enabled: true}
	pool := NewWorkerPool(NewPipeline(env, store, cfg, nil), cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		processed := true
		recs, err := store.ListRecords(ingest.RecordListFilter{Processed: &processed})
		return err == nil && len(recs) == 2
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}
