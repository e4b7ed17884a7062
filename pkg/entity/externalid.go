package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExternalID maps an entity to one source system's native identifier for it:
// a ServiceNow sys_id, AWS ARN, Okta id, AD objectGUID. The mapping is the
// join key that correlates the same real-world thing across connectors.
type ExternalID struct {
	ID             string       `gorm:"primaryKey;column:id;type:varchar(36)"`
	EntityType     Type         `gorm:"column:entity_type;uniqueIndex:idx_extid_tuple,priority:1;index:idx_extid_entity,priority:1;not null"`
	EntityID       string       `gorm:"column:entity_uuid;type:varchar(36);uniqueIndex:idx_extid_tuple,priority:2;index:idx_extid_entity,priority:2;not null"`
	Source         SourceSystem `gorm:"column:source;uniqueIndex:idx_extid_tuple,priority:3;index:idx_extid_lookup,priority:1;not null"`
	ExternalID     string       `gorm:"column:external_id;uniqueIndex:idx_extid_tuple,priority:4;index:idx_extid_lookup,priority:2;not null"`
	ExternalIDType string       `gorm:"column:external_id_type"`
	CreatedAt      time.Time    `gorm:"column:created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (ExternalID) TableName() string { return "external_ids" }

// EntityRef returns the entity side of the mapping.
func (x *ExternalID) EntityRef() Ref { return Ref{Type: x.EntityType, ID: x.EntityID} }

// Resolver correlates entities with their external identifiers. No central
// master-id service exists; each source's native id is recorded and reused as
// the join key when that source is re-ingested.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a new Resolver.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// AutoMigrate creates or updates the external_ids table.
func (r *Resolver) AutoMigrate() error {
	return r.db.AutoMigrate(&ExternalID{})
}

// Link records that the given entity is known to source under externalID.
// Re-linking an identical tuple is a no-op. Linking an external id that
// already resolves to a different entity fails with ConflictingExternalID;
// silent overwrite would corrupt correlation history.
func (r *Resolver) Link(ref Ref, source SourceSystem, externalID, externalIDType string) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if !source.IsValid() {
		return &InvalidEnumValue{Field: "source", Value: string(source)}
	}
	if externalID == "" {
		return fmt.Errorf("external id for %s must not be empty", ref)
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing ExternalID
		err := tx.Where("source = ? AND external_id = ?", source, externalID).
			First(&existing).Error
		if err == nil {
			if existing.EntityType == ref.Type && existing.EntityID == ref.ID {
				return nil // already linked
			}
			return &ConflictingExternalID{
				Source:     source,
				ExternalID: externalID,
				Existing:   existing.EntityRef(),
				Attempted:  ref,
			}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check external id: %w", err)
		}
		row := ExternalID{
			ID:             uuid.New().String(),
			EntityType:     ref.Type,
			EntityID:       ref.ID,
			Source:         source,
			ExternalID:     externalID,
			ExternalIDType: externalIDType,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("link external id: %w", err)
		}
		return nil
	})
}

// Resolve looks up the entity a (source, external id) pair refers to.
// Returns (nil, nil) when no mapping exists, letting the caller decide to
// create a new entity.
func (r *Resolver) Resolve(source SourceSystem, externalID string) (*Ref, error) {
	var row ExternalID
	err := r.db.Where("source = ? AND external_id = ?", source, externalID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve external id: %w", err)
	}
	ref := row.EntityRef()
	return &ref, nil
}

// ExternalIDsOf returns every external identifier recorded for an entity.
func (r *Resolver) ExternalIDsOf(ref Ref) ([]ExternalID, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	var out []ExternalID
	err := r.db.Where("entity_type = ? AND entity_uuid = ?", ref.Type, ref.ID).
		Order("source, external_id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list external ids of %s: %w", ref, err)
	}
	return out, nil
}

// Unlink removes one mapping. Missing rows are ignored.
func (r *Resolver) Unlink(ref Ref, source SourceSystem, externalID string) error {
	err := r.db.Where(
		"entity_type = ? AND entity_uuid = ? AND source = ? AND external_id = ?",
		ref.Type, ref.ID, source, externalID,
	).Delete(&ExternalID{}).Error
	if err != nil {
		return fmt.Errorf("unlink external id: %w", err)
	}
	return nil
}
