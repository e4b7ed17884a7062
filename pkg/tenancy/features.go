package tenancy

import "context"

// Feature keys gate whole areas of the product. Entity categories hang off
// the intelligence key.
const (
	FeatureRisks        = "risks"
	FeatureControls     = "controls"
	FeatureIntelligence = "intelligence"
)

// builtinDefaults apply when neither the org nor the deployment config has an
// opinion.
var builtinDefaults = map[string]bool{
	FeatureRisks:        true,
	FeatureControls:     true,
	FeatureIntelligence: true,
}

// FeatureService answers feature-enabled checks with a three-level
// precedence: per-org database override, deployment-wide configured default,
// then built-in default.
type FeatureService struct {
	store    *Store
	defaults map[string]bool
}

// NewFeatureService creates a FeatureService. configured may be nil.
func NewFeatureService(store *Store, configured map[string]bool) *FeatureService {
	return &FeatureService{store: store, defaults: configured}
}

// Enabled reports whether the feature is on for the org in ctx. With no org
// context the per-org level is skipped.
func (f *FeatureService) Enabled(ctx context.Context, key string) (bool, error) {
	if orgID := OrgIDFromContext(ctx); orgID != "" {
		enabled, found, err := f.store.GetFlag(orgID, key)
		if err != nil {
			return false, err
		}
		if found {
			return enabled, nil
		}
	}
	if f.defaults != nil {
		if v, ok := f.defaults[key]; ok {
			return v, nil
		}
	}
	return builtinDefaults[key], nil
}
