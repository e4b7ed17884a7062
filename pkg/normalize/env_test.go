package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

func TestMayUpdate(t *testing.T) {
	env, _ := setupEnv(t)

	a := &entity.Asset{Type: entity.AssetServer, Name: "web-01", SourceOfTruth: entity.SourceServiceNow}
	require.NoError(t, env.Registry.CreateAsset(a))

	assert.True(t, env.MayUpdate(a, a.Ref(), entity.SourceServiceNow))
	assert.False(t, env.MayUpdate(a, a.Ref(), entity.SourceFlexera))
}

func TestResolveOrCreateAssetCreatesThenResolves(t *testing.T) {
	env, _ := setupEnv(t)

	a, created, err := env.ResolveOrCreateAsset(entity.SourceServiceNow, "sys_1", "sys_id", entity.AssetServer, "web-01")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, entity.SourceServiceNow, a.SourceOfTruth)

	// Second call resolves through the external id, no duplicate.
	again, created, err := env.ResolveOrCreateAsset(entity.SourceServiceNow, "sys_1", "sys_id", entity.AssetServer, "renamed-upstream")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, again.ID)
}

func TestResolveOrCreateAssetFallsBackToNaturalKey(t *testing.T) {
	env, _ := setupEnv(t)

	a := &entity.Asset{Type: entity.AssetServer, Name: "web-01"}
	require.NoError(t, env.Registry.CreateAsset(a))

	// No external id mapping yet; the natural key matches and the id is
	// linked back for the next pass.
	got, created, err := env.ResolveOrCreateAsset(entity.SourceFlexera, "flx-1", "", entity.AssetServer, "web-01")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, got.ID)

	ref, err := env.Resolver.Resolve(entity.SourceFlexera, "flx-1")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, a.ID, ref.ID)
}

func TestResolveOrCreateAssetRejectsWrongCategory(t *testing.T) {
	env, _ := setupEnv(t)

	ident := &entity.Identity{Username: "alice"}
	require.NoError(t, env.Registry.CreateIdentity(ident))
	require.NoError(t, env.Resolver.Link(ident.Ref(), entity.SourceOkta, "okta_1", ""))

	_, _, err := env.ResolveOrCreateAsset(entity.SourceOkta, "okta_1", "", entity.AssetServer, "web-01")
	assert.Error(t, err)
}

func TestResolveOrCreateIdentityByUsername(t *testing.T) {
	env, _ := setupEnv(t)

	ident := &entity.Identity{Username: "alice"}
	require.NoError(t, env.Registry.CreateIdentity(ident))

	got, created, err := env.ResolveOrCreateIdentity(entity.SourceOkta, "okta_1", "id", "alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, ident.ID, got.ID)
}

func TestResolveOrCreateEnvironment(t *testing.T) {
	env, _ := setupEnv(t)

	e1, created, err := env.ResolveOrCreateEnvironment(entity.SourceAWS, "123456789012", "account_id", "aws_account", "prod")
	require.NoError(t, err)
	assert.True(t, created)

	e2, created, err := env.ResolveOrCreateEnvironment(entity.SourceAWS, "123456789012", "account_id", "aws_account", "prod")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, e1.ID, e2.ID)
}

func TestResolveOrCreateGroup(t *testing.T) {
	env, _ := setupEnv(t)

	g1, created, err := env.ResolveOrCreateGroup(entity.SourceOkta, "grp_1", "", entity.GroupOkta, "engineering")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, entity.SourceOkta, g1.SourceOfTruth)

	// Natural-key fallback when a different tool reports the same group.
	g2, created, err := env.ResolveOrCreateGroup(entity.SourceAD, "cn=engineering", "", entity.GroupOkta, "engineering")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, g1.ID, g2.ID)
}
