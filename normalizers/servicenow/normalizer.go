// Package servicenow registers normalizers for ServiceNow CMDB raw records.
// Payload field names follow the ServiceNow Table API.
package servicenow

import (
	"context"
	"fmt"
	"time"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/graph"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
	"github.com/cisoworks/asset-intelligence/pkg/normalize"
)

// RecordTypeCI is the record type the ServiceNow connector emits for
// configuration items.
const RecordTypeCI = "cmdb_ci"

func init() {
	normalize.Register(entity.SourceServiceNow, RecordTypeCI, normalize.NormalizerFunc(normalizeCI))
}

// classToAssetType maps ServiceNow CI classes onto asset types.
var classToAssetType = map[string]entity.AssetType{
	"cmdb_ci_server":           entity.AssetServer,
	"cmdb_ci_vm_instance":      entity.AssetVM,
	"cmdb_ci_database":         entity.AssetDatabase,
	"cmdb_ci_netgear":          entity.AssetNetworkDevice,
	"cmdb_ci_computer":         entity.AssetEndpoint,
	"cmdb_ci_appl":             entity.AssetSaaSApp,
	"cmdb_ci_docker_container": entity.AssetContainer,
}

func str(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

// normalizeCI upserts one asset per CI payload, links its sys_id, and
// asserts a runs_in edge when the payload names an environment.
func normalizeCI(ctx context.Context, env *normalize.Env, rec *ingest.RawRecord) error {
	payload := map[string]any(rec.Payload)
	name := str(payload, "name")
	if name == "" {
		return fmt.Errorf("cmdb_ci payload missing name")
	}

	assetType, ok := classToAssetType[str(payload, "sys_class_name")]
	if !ok {
		assetType = entity.AssetOther
	}

	asset, created, err := env.ResolveOrCreateAsset(
		entity.SourceServiceNow, rec.ExternalID, "sys_id", assetType, name)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if created || env.MayUpdate(asset, asset.Ref(), entity.SourceServiceNow) {
		if desc := str(payload, "short_description"); desc != "" {
			asset.Description = desc
		}
		if crit := entity.Criticality(str(payload, "criticality")); crit != "" && crit.IsValid() {
			asset.Criticality = crit
		}
		if asset.FirstSeenAt == nil {
			asset.FirstSeenAt = &now
		}
		asset.LastSeenAt = &now
		if err := env.Registry.UpdateAsset(asset); err != nil {
			return err
		}
	}

	if envName := str(payload, "environment"); envName != "" {
		envType := str(payload, "environment_type")
		if envType == "" {
			envType = "onprem_zone"
		}
		environment, _, err := env.ResolveOrCreateEnvironment(
			entity.SourceServiceNow, "", "", envType, envName)
		if err != nil {
			return err
		}
		_, err = env.Graph.Upsert(asset.Ref(), environment.Ref(), graph.RelRunsIn,
			entity.SourceServiceNow, 1.0, &now)
		if err != nil {
			return err
		}
	}

	return nil
}
