// Package okta registers normalizers for Okta user and group raw records.
package okta

import (
	"context"
	"fmt"
	"time"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/graph"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
	"github.com/cisoworks/asset-intelligence/pkg/normalize"
)

// Record types the Okta connector emits.
const (
	RecordTypeUser  = "user"
	RecordTypeGroup = "group"
)

func init() {
	normalize.Register(entity.SourceOkta, RecordTypeUser, normalize.NormalizerFunc(normalizeUser))
	normalize.Register(entity.SourceOkta, RecordTypeGroup, normalize.NormalizerFunc(normalizeGroup))
}

func str(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func hasSource(sources entity.JSONStringSlice, s string) bool {
	for _, v := range sources {
		if v == s {
			return true
		}
	}
	return false
}

// normalizeUser upserts one identity per Okta user payload.
func normalizeUser(ctx context.Context, env *normalize.Env, rec *ingest.RawRecord) error {
	payload := map[string]any(rec.Payload)
	login := str(payload, "login")
	if login == "" {
		return fmt.Errorf("okta user payload missing login")
	}

	ident, created, err := env.ResolveOrCreateIdentity(
		entity.SourceOkta, rec.ExternalID, "okta_id", login)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if created || env.MayUpdate(ident, ident.Ref(), entity.SourceOkta) {
		if email := str(payload, "email"); email != "" {
			ident.Email = email
		}
		if display := str(payload, "displayName"); display != "" {
			ident.DisplayName = display
		}
		switch str(payload, "status") {
		case "ACTIVE":
			ident.Status = entity.IdentityActive
		case "SUSPENDED", "DEPROVISIONED":
			ident.Status = entity.IdentityDisabled
		case "STAGED", "PROVISIONED":
			ident.Status = entity.IdentityPending
		}
		if !hasSource(ident.AuthSources, "Okta") {
			ident.AuthSources = append(ident.AuthSources, "Okta")
		}
		if ident.FirstSeenAt == nil {
			ident.FirstSeenAt = &now
		}
		ident.LastSeenAt = &now
		if err := env.Registry.UpdateIdentity(ident); err != nil {
			return err
		}
	}

	return nil
}

// normalizeGroup upserts one group per Okta group payload and member_of
// edges for any member logins listed inline.
func normalizeGroup(ctx context.Context, env *normalize.Env, rec *ingest.RawRecord) error {
	payload := map[string]any(rec.Payload)
	name := str(payload, "name")
	if name == "" {
		return fmt.Errorf("okta group payload missing name")
	}

	group, _, err := env.ResolveOrCreateGroup(
		entity.SourceOkta, rec.ExternalID, "okta_id", entity.GroupOkta, name)
	if err != nil {
		return err
	}

	members, _ := payload["members"].([]any)
	now := time.Now().UTC()
	for _, m := range members {
		login, _ := m.(string)
		if login == "" {
			continue
		}
		ident, _, err := env.ResolveOrCreateIdentity(entity.SourceOkta, "", "", login)
		if err != nil {
			return err
		}
		if err := env.Registry.AddGroupMember(group.ID, ident.ID); err != nil {
			return err
		}
		_, err = env.Graph.Upsert(ident.Ref(), group.Ref(), graph.RelMemberOf,
			entity.SourceOkta, 1.0, &now)
		if err != nil {
			return err
		}
	}

	return nil
}
