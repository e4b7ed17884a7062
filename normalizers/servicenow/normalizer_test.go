package servicenow

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/graph"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
	"github.com/cisoworks/asset-intelligence/pkg/normalize"
)

func setupEnv(t *testing.T) *normalize.Env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	reg := entity.NewRegistry(db)
	res := entity.NewResolver(db)
	gr := graph.NewStore(db)
	require.NoError(t, reg.AutoMigrate())
	require.NoError(t, res.AutoMigrate())
	require.NoError(t, gr.AutoMigrate())
	return normalize.NewEnv(reg, res, gr, nil)
}

func ciRecord(externalID string, payload map[string]any) *ingest.RawRecord {
	return &ingest.RawRecord{
		ID:         "rec-" + externalID,
		Source:     entity.SourceServiceNow,
		RecordType: RecordTypeCI,
		ExternalID: externalID,
		Payload:    entity.JSONAny(payload),
	}
}

func TestNormalizeCICreatesAsset(t *testing.T) {
	env := setupEnv(t)

	rec := ciRecord("sys_1", map[string]any{
		"name":              "web-01",
		"sys_class_name":    "cmdb_ci_server",
		"short_description": "Payments web frontend",
		"criticality":       "tier1",
	})
	require.NoError(t, normalizeCI(context.Background(), env, rec))

	a, err := env.Registry.GetAssetByKey(entity.AssetServer, "web-01")
	require.NoError(t, err)
	assert.Equal(t, "Payments web frontend", a.Description)
	assert.Equal(t, entity.CriticalityTier1, a.Criticality)
	assert.Equal(t, entity.SourceServiceNow, a.SourceOfTruth)
	assert.NotNil(t, a.FirstSeenAt)
	assert.NotNil(t, a.LastSeenAt)

	ref, err := env.Resolver.Resolve(entity.SourceServiceNow, "sys_1")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, a.ID, ref.ID)
}

func TestNormalizeCIUnknownClassDefaultsToOther(t *testing.T) {
	env := setupEnv(t)

	rec := ciRecord("sys_1", map[string]any{
		"name":           "mystery-box",
		"sys_class_name": "cmdb_ci_cluster",
	})
	require.NoError(t, normalizeCI(context.Background(), env, rec))

	_, err := env.Registry.GetAssetByKey(entity.AssetOther, "mystery-box")
	require.NoError(t, err)
}

func TestNormalizeCIMissingNameFails(t *testing.T) {
	env := setupEnv(t)

	err := normalizeCI(context.Background(), env, ciRecord("sys_1", map[string]any{}))
	assert.Error(t, err)
}

func TestNormalizeCILinksEnvironment(t *testing.T) {
	env := setupEnv(t)

	rec := ciRecord("sys_1", map[string]any{
		"name":           "app-01",
		"sys_class_name": "cmdb_ci_vm_instance",
		"environment":    "prod-dc1",
	})
	require.NoError(t, normalizeCI(context.Background(), env, rec))

	a, err := env.Registry.GetAssetByKey(entity.AssetVM, "app-01")
	require.NoError(t, err)
	e, err := env.Registry.GetEnvironmentByKey("onprem_zone", "prod-dc1")
	require.NoError(t, err)

	edges, err := env.Graph.Neighbors(a.Ref(), graph.DirectionOutgoing, nil)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, graph.RelRunsIn, edges[0].RelationshipType)
	assert.Equal(t, e.Ref(), edges[0].To())
}

func TestNormalizeCIRespectsSourceOfTruth(t *testing.T) {
	env := setupEnv(t)

	a := &entity.Asset{
		Type:          entity.AssetServer,
		Name:          "web-01",
		Description:   "curated by hand",
		SourceOfTruth: entity.SourceManual,
	}
	require.NoError(t, env.Registry.CreateAsset(a))
	require.NoError(t, env.Resolver.Link(a.Ref(), entity.SourceServiceNow, "sys_1", "sys_id"))

	rec := ciRecord("sys_1", map[string]any{
		"name":              "web-01",
		"sys_class_name":    "cmdb_ci_server",
		"short_description": "overwritten description",
	})
	require.NoError(t, normalizeCI(context.Background(), env, rec))

	got, err := env.Registry.GetAsset(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "curated by hand", got.Description)
}

func TestNormalizeCIIdempotent(t *testing.T) {
	env := setupEnv(t)

	rec := ciRecord("sys_1", map[string]any{
		"name":           "web-01",
		"sys_class_name": "cmdb_ci_server",
		"environment":    "prod-dc1",
	})
	require.NoError(t, normalizeCI(context.Background(), env, rec))
	require.NoError(t, normalizeCI(context.Background(), env, rec))

	assets, err := env.Registry.ListAssets(entity.AssetListFilter{})
	require.NoError(t, err)
	assert.Len(t, assets, 1)

	edges, err := env.Graph.Query(graph.Filter{})
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}
