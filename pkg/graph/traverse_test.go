package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

func TestTraverseVisitsEachEntityOnce(t *testing.T) {
	store := NewStore(setupTestDB(t))

	a := ref(entity.TypeAsset, "a")
	b := ref(entity.TypeAsset, "b")
	c := ref(entity.TypeAsset, "c")

	// a -> b, a -> c, b -> c: c is reachable twice but visited once.
	_, err := store.Upsert(a, b, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)
	_, err = store.Upsert(a, c, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)
	_, err = store.Upsert(b, c, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)

	visits := map[entity.Ref]int{}
	err = store.Traverse(a, nil, 0, func(r entity.Ref, depth int) error {
		visits[r]++
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, visits, 3)
	for r, n := range visits {
		assert.Equal(t, 1, n, "entity %s visited more than once", r)
	}
}

func TestTraverseTerminatesOnCycle(t *testing.T) {
	store := NewStore(setupTestDB(t))

	a := ref(entity.TypeAsset, "a")
	b := ref(entity.TypeAsset, "b")

	_, err := store.Upsert(a, b, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)
	_, err = store.Upsert(b, a, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)

	var count int
	err = store.Traverse(a, nil, 0, func(entity.Ref, int) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTraverseMaxDepth(t *testing.T) {
	store := NewStore(setupTestDB(t))

	a := ref(entity.TypeAsset, "a")
	b := ref(entity.TypeAsset, "b")
	c := ref(entity.TypeAsset, "c")

	_, err := store.Upsert(a, b, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)
	_, err = store.Upsert(b, c, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)

	depths := map[entity.Ref]int{}
	err = store.Traverse(a, nil, 1, func(r entity.Ref, depth int) error {
		depths[r] = depth
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, depths, 2)
	assert.Equal(t, 0, depths[a])
	assert.Equal(t, 1, depths[b])
}

func TestTraverseVisitErrorStops(t *testing.T) {
	store := NewStore(setupTestDB(t))

	a := ref(entity.TypeAsset, "a")
	b := ref(entity.TypeAsset, "b")
	_, err := store.Upsert(a, b, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.Traverse(a, nil, 0, func(entity.Ref, int) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestTraverseFollowsOnlyRequestedType(t *testing.T) {
	store := NewStore(setupTestDB(t))

	a := ref(entity.TypeAsset, "a")
	b := ref(entity.TypeAsset, "b")
	c := ref(entity.TypeAsset, "c")

	_, err := store.Upsert(a, b, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)
	_, err = store.Upsert(a, c, RelConnectedTo, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)

	rel := RelDependsOn
	var seen []entity.Ref
	err = store.Traverse(a, &rel, 0, func(r entity.Ref, _ int) error {
		seen = append(seen, r)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []entity.Ref{a, b}, seen)
}

func TestDetectCycles(t *testing.T) {
	store := NewStore(setupTestDB(t))

	a := ref(entity.TypeAsset, "a")
	b := ref(entity.TypeAsset, "b")
	c := ref(entity.TypeAsset, "c")
	d := ref(entity.TypeAsset, "d")

	// a -> b -> c -> a is a cycle; d -> a is not part of one.
	for _, pair := range [][2]entity.Ref{{a, b}, {b, c}, {c, a}, {d, a}} {
		_, err := store.Upsert(pair[0], pair[1], RelDependsOn, entity.SourceManual, 1.0, nil)
		require.NoError(t, err)
	}

	cycles, err := store.DetectCycles(nil)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0].Path, 3)
}

func TestDetectCyclesSelfLoop(t *testing.T) {
	store := NewStore(setupTestDB(t))

	a := ref(entity.TypeAsset, "a")
	_, err := store.Upsert(a, a, RelConnectedTo, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)

	cycles, err := store.DetectCycles(nil)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, []entity.Ref{a}, cycles[0].Path)
}

func TestDetectCyclesNoneFound(t *testing.T) {
	store := NewStore(setupTestDB(t))

	a := ref(entity.TypeAsset, "a")
	b := ref(entity.TypeAsset, "b")
	_, err := store.Upsert(a, b, RelDependsOn, entity.SourceManual, 1.0, nil)
	require.NoError(t, err)

	cycles, err := store.DetectCycles(nil)
	require.NoError(t, err)
	assert.Empty(t, cycles)
}
