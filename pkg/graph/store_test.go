package graph

import (
	"testing"
	"time"

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

func ref(typ entity.Type, id string) entity.Ref {
	return entity.Ref{Type: typ, ID: id}
}

func TestUpsertCreatesEdge(t *testing.T) {
	store := NewStore(setupTestDB(t))

	from := ref(entity.TypeAsset, "vm-1")
	to := ref(entity.TypeEnvironment, "env-1")
	edge, err := store.Upsert(from, to, RelRunsIn, entity.SourceAWS, 1.0, nil)
	require.NoError(t, err)
	assert.Equal(t, from, edge.From())
	assert.Equal(t, to, edge.To())
	assert.Equal(t, RelRunsIn, edge.RelationshipType)
	assert.Equal(t, entity.SourceAWS, edge.Source)
}

func TestUpsertSameSourceMergesInPlace(t *testing.T) {
	store := NewStore(setupTestDB(t))

	from := ref(entity.TypeAsset, "vm-1")
	to := ref(entity.TypeEnvironment, "env-1")

	first, err := store.Upsert(from, to, RelRunsIn, entity.SourceAWS, 0.5, nil)
	require.NoError(t, err)

	later := time.Now().UTC().Truncate(time.Second)
	second, err := store.Upsert(from, to, RelRunsIn, entity.SourceAWS, 0.9, &later)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.InDelta(t, 0.9, second.Confidence, 1e-9)
	require.NotNil(t, second.LastConfirmedAt)

	edges, err := store.Query(Filter{From: &from})
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestUpsertCrossSourceKeepsDistinctEdges(t *testing.T) {
	store := NewStore(setupTestDB(t))

	from := ref(entity.TypeAsset, "vm-1")
	to := ref(entity.TypeEnvironment, "env-1")

	_, err := store.Upsert(from, to, RelRunsIn, entity.SourceAWS, 1.0, nil)
	require.NoError(t, err)
	_, err = store.Upsert(from, to, RelRunsIn, entity.SourceServiceNow, 0.8, nil)
	require.NoError(t, err)

	edges, err := store.Query(Filter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.NotEqual(t, edges[0].Source, edges[1].Source)
}

func TestUpsertValidation(t *testing.T) {
	store := NewStore(setupTestDB(t))

	from := ref(entity.TypeAsset, "vm-1")
	to := ref(entity.TypeEnvironment, "env-1")

	_, err := store.Upsert(from, to, "floats_above", entity.SourceAWS, 1.0, nil)
	var bad *entity.InvalidEnumValue
	require.ErrorAs(t, err, &bad)

	_, err = store.Upsert(from, to, RelRunsIn, entity.SourceAWS, 1.5, nil)
	assert.Error(t, err)

	_, err = store.Upsert(ref("cloud", "x"), to, RelRunsIn, entity.SourceAWS, 1.0, nil)
	assert.Error(t, err)
}

func TestUpsertDefaultsSourceToManual(t *testing.T) {
	store := NewStore(setupTestDB(t))

	edge, err := store.Upsert(ref(entity.TypeTeam, "t-1"), ref(entity.TypeAsset, "vm-1"), RelOwns, "", 1.0, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.SourceManual, edge.Source)
}

func TestUpsertStoresZeroConfidence(t *testing.T) {
	store := NewStore(setupTestDB(t))

	// 0.0 is inside the legal range and must survive the insert verbatim.
	edge, err := store.Upsert(ref(entity.TypeAsset, "vm-1"), ref(entity.TypeEnvironment, "env-1"), RelRunsIn, entity.SourceAWS, 0.0, nil)
	require.NoError(t, err)
	assert.Zero(t, edge.Confidence)

	edges, err := store.Query(Filter{})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Zero(t, edges[0].Confidence)
}

func TestQueryFilters(t *testing.T) {
	store := NewStore(setupTestDB(t))

	vm := ref(entity.TypeAsset, "vm-1")
	env := ref(entity.TypeEnvironment, "env-1")
	db := ref(entity.TypeAsset, "db-1")

	_, err := store.Upsert(vm, env, RelRunsIn, entity.SourceAWS, 1.0, nil)
	require.NoError(t, err)
	_, err = store.Upsert(vm, db, RelDependsOn, entity.SourceServiceNow, 0.4, nil)
	require.NoError(t, err)

	rel := RelDependsOn
	edges, err := store.Query(Filter{RelationshipType: &rel})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, db, edges[0].To())

	min := 0.9
	edges, err = store.Query(Filter{MinConfidence: &min})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, RelRunsIn, edges[0].RelationshipType)

	src := entity.SourceServiceNow
	edges, err = store.Query(Filter{Source: &src})
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestNeighborsDirections(t *testing.T) {
	store := NewStore(setupTestDB(t))

	vm := ref(entity.TypeAsset, "vm-1")
	env := ref(entity.TypeEnvironment, "env-1")
	team := ref(entity.TypeTeam, "t-1")

	_, err := store.Upsert(vm, env, RelRunsIn, entity.SourceAWS, 1.0, nil)
	require.NoError(t, err)
	_, err = store.Upsert(team, vm, RelOwns, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)

	out, err := store.Neighbors(vm, DirectionOutgoing, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, env, out[0].To())

	in, err := store.Neighbors(vm, DirectionIncoming, nil)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, team, in[0].From())

	both, err := store.Neighbors(vm, DirectionBoth, nil)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	rel := RelRunsIn
	typed, err := store.Neighbors(vm, DirectionBoth, &rel)
	require.NoError(t, err)
	assert.Len(t, typed, 1)

	_, err = store.Neighbors(vm, "sideways", nil)
	assert.Error(t, err)
}

func TestQueryBatches(t *testing.T) {
	store := NewStore(setupTestDB(t))

	env := ref(entity.TypeEnvironment, "env-1")
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, err := store.Upsert(ref(entity.TypeAsset, id), env, RelRunsIn, entity.SourceAWS, 1.0, nil)
		require.NoError(t, err)
	}

	var seen int
	var calls int
	err := store.QueryBatches(Filter{}, 2, func(batch []Edge) error {
		calls++
		seen += len(batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, seen)
	assert.Equal(t, 3, calls)
}

func TestDeleteEdge(t *testing.T) {
	store := NewStore(setupTestDB(t))

	edge, err := store.Upsert(ref(entity.TypeAsset, "vm-1"), ref(entity.TypeEnvironment, "env-1"), RelRunsIn, entity.SourceAWS, 1.0, nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(edge.ID))

	edges, err := store.Query(Filter{})
	require.NoError(t, err)
	assert.Empty(t, edges)
}
