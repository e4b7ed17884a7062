package normalize

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/graph"
)

// Env bundles the stores a normalizer writes through, plus the shared
// resolve-or-create logic that makes normalization idempotent: resolve by
// external id first, fall back to the natural key, create only when neither
// matches, and link the external id back so the next pass resolves directly.
type Env struct {
	Registry *entity.Registry
	Resolver *entity.Resolver
	Graph    *graph.Store
	Logger   *slog.Logger
}

// NewEnv creates an Env.
func NewEnv(reg *entity.Registry, res *entity.Resolver, gr *graph.Store, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	return &Env{Registry: reg, Resolver: res, Graph: gr, Logger: logger}
}

// MayUpdate applies the cross-source conflict policy: only the source marked
// as the entity's source of truth may change its fields. Losing updates are
// logged for review, never applied.
func (e *Env) MayUpdate(rec entity.HasSourceOfTruth, ref entity.Ref, source entity.SourceSystem) bool {
	if rec.SourceOfTruthSystem() == source {
		return true
	}
	e.Logger.Warn("update from non-authoritative source skipped",
		"entity", ref.String(),
		"sourceOfTruth", rec.SourceOfTruthSystem(),
		"source", source)
	return false
}

// ResolveOrCreateAsset finds the asset an external record refers to, creating
// it when unknown. Newly created assets take the ingesting source as their
// source of truth.
func (e *Env) ResolveOrCreateAsset(source entity.SourceSystem, externalID, externalIDType string, assetType entity.AssetType, name string) (*entity.Asset, bool, error) {
	if externalID != "" {
		ref, err := e.Resolver.Resolve(source, externalID)
		if err != nil {
			return nil, false, err
		}
		if ref != nil {
			if ref.Type != entity.TypeAsset {
				return nil, false, fmt.Errorf("external id %s:%s resolves to %s, expected an asset", source, externalID, ref)
			}
			a, err := e.Registry.GetAsset(ref.ID)
			if err != nil {
				return nil, false, err
			}
			return a, false, nil
		}
	}

	a, err := e.Registry.GetAssetByKey(assetType, name)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return nil, false, err
	}
	created := false
	if a == nil {
		a = &entity.Asset{
			Type:          assetType,
			Name:          name,
			SourceOfTruth: source,
		}
		if err := e.Registry.CreateAsset(a); err != nil {
			return nil, false, err
		}
		created = true
	}
	if externalID != "" {
		if err := e.Resolver.Link(a.Ref(), source, externalID, externalIDType); err != nil {
			return nil, false, err
		}
	}
	return a, created, nil
}

// ResolveOrCreateIdentity finds or creates the identity behind an external
// record. Identities have no natural key; username is used as a best-effort
// fallback before creating.
func (e *Env) ResolveOrCreateIdentity(source entity.SourceSystem, externalID, externalIDType, username string) (*entity.Identity, bool, error) {
	if externalID != "" {
		ref, err := e.Resolver.Resolve(source, externalID)
		if err != nil {
			return nil, false, err
		}
		if ref != nil {
			if ref.Type != entity.TypeIdentity {
				return nil, false, fmt.Errorf("external id %s:%s resolves to %s, expected an identity", source, externalID, ref)
			}
			i, err := e.Registry.GetIdentity(ref.ID)
			if err != nil {
				return nil, false, err
			}
			return i, false, nil
		}
	}

	var ident *entity.Identity
	if username != "" {
		var err error
		ident, err = e.Registry.GetIdentityByUsername(username)
		if err != nil && !errors.Is(err, entity.ErrNotFound) {
			return nil, false, err
		}
	}
	created := false
	if ident == nil {
		ident = &entity.Identity{
			Username:      username,
			SourceOfTruth: source,
		}
		if err := e.Registry.CreateIdentity(ident); err != nil {
			return nil, false, err
		}
		created = true
	}
	if externalID != "" {
		if err := e.Resolver.Link(ident.Ref(), source, externalID, externalIDType); err != nil {
			return nil, false, err
		}
	}
	return ident, created, nil
}

// ResolveOrCreateEnvironment finds or creates an environment by external id,
// then (type, name).
func (e *Env) ResolveOrCreateEnvironment(source entity.SourceSystem, externalID, externalIDType, envType, name string) (*entity.Environment, bool, error) {
	if externalID != "" {
		ref, err := e.Resolver.Resolve(source, externalID)
		if err != nil {
			return nil, false, err
		}
		if ref != nil {
			if ref.Type != entity.TypeEnvironment {
				return nil, false, fmt.Errorf("external id %s:%s resolves to %s, expected an environment", source, externalID, ref)
			}
			env, err := e.Registry.GetEnvironment(ref.ID)
			if err != nil {
				return nil, false, err
			}
			return env, false, nil
		}
	}

	env, err := e.Registry.GetEnvironmentByKey(envType, name)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return nil, false, err
	}
	created := false
	if env == nil {
		env = &entity.Environment{
			Type:          envType,
			Name:          name,
			SourceOfTruth: source,
		}
		if err := e.Registry.CreateEnvironment(env); err != nil {
			return nil, false, err
		}
		created = true
	}
	if externalID != "" {
		if err := e.Resolver.Link(env.Ref(), source, externalID, externalIDType); err != nil {
			return nil, false, err
		}
	}
	return env, created, nil
}

// ResolveOrCreateGroup finds or creates a group by external id, then
// (type, name).
func (e *Env) ResolveOrCreateGroup(source entity.SourceSystem, externalID, externalIDType string, groupType entity.GroupType, name string) (*entity.Group, bool, error) {
	if externalID != "" {
		ref, err := e.Resolver.Resolve(source, externalID)
		if err != nil {
			return nil, false, err
		}
		if ref != nil {
			if ref.Type != entity.TypeGroup {
				return nil, false, fmt.Errorf("external id %s:%s resolves to %s, expected a group", source, externalID, ref)
			}
			g, err := e.Registry.GetGroup(ref.ID)
			if err != nil {
				return nil, false, err
			}
			return g, false, nil
		}
	}

	g, err := e.Registry.GetGroupByKey(groupType, name)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return nil, false, err
	}
	created := false
	if g == nil {
		g = &entity.Group{
			Type:          groupType,
			Name:          name,
			SourceOfTruth: source,
		}
		if err := e.Registry.CreateGroup(g); err != nil {
			return nil, false, err
		}
		created = true
	}
	if externalID != "" {
		if err := e.Resolver.Link(g.Ref(), source, externalID, externalIDType); err != nil {
			return nil, false, err
		}
	}
	return g, created, nil
}
