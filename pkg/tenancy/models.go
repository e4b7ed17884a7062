package tenancy

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is one tenant.
type Organization struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name      string    `gorm:"column:name;uniqueIndex:idx_org_name;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Organization) TableName() string { return "organizations" }

// FeatureFlag is a per-organization override for one feature key.
type FeatureFlag struct {
	ID    string `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrgID string `gorm:"column:org_id;type:varchar(36);uniqueIndex:idx_flag_org_key,priority:1;not null"`
	Key   string `gorm:"column:key;uniqueIndex:idx_flag_org_key,priority:2;not null"`
	// No default tag: GORM drops zero-valued fields that carry one from the
	// INSERT, which would turn an enabled=false override into true.
	Enabled   bool      `gorm:"column:enabled"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (FeatureFlag) TableName() string { return "feature_flags" }

// Store persists organizations and feature flags.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the tenancy tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Organization{}); err != nil {
		return fmt.Errorf("auto-migrate organizations: %w", err)
	}
	if err := s.db.AutoMigrate(&FeatureFlag{}); err != nil {
		return fmt.Errorf("auto-migrate feature_flags: %w", err)
	}
	return nil
}

// CreateOrganization stores a new organization. Names are unique.
func (s *Store) CreateOrganization(o *Organization) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if err := s.db.Create(o).Error; err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// GetOrganization retrieves an organization by id. Returns nil, nil when
// no such organization exists.
func (s *Store) GetOrganization(id string) (*Organization, error) {
	var o Organization
	err := s.db.Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &o, nil
}

// SetFlag creates or updates one org-level feature override.
func (s *Store) SetFlag(orgID, key string, enabled bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing FeatureFlag
		err := tx.Where("org_id = ? AND key = ?", orgID, key).First(&existing).Error
		if err == nil {
			return tx.Model(&existing).Update("enabled", enabled).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check feature flag: %w", err)
		}
		flag := FeatureFlag{
			ID:      uuid.New().String(),
			OrgID:   orgID,
			Key:     key,
			Enabled: enabled,
		}
		return tx.Create(&flag).Error
	})
}

// GetFlag looks up a per-org override. Returns (enabled, true, nil) when an
// override exists, and found=false when the org has no opinion on the key.
func (s *Store) GetFlag(orgID, key string) (enabled, found bool, err error) {
	var flag FeatureFlag
	e := s.db.Where("org_id = ? AND key = ?", orgID, key).First(&flag).Error
	if errors.Is(e, gorm.ErrRecordNotFound) {
		return false, false, nil
	}
	if e != nil {
		return false, false, fmt.Errorf("get feature flag: %w", e)
	}
	return flag.Enabled, true, nil
}
