package grc

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

// Store persists risks, controls, and their links.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the risk and control tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Risk{}); err != nil {
		return fmt.Errorf("auto-migrate risks: %w", err)
	}
	if err := s.db.AutoMigrate(&Control{}); err != nil {
		return fmt.Errorf("auto-migrate controls: %w", err)
	}
	return nil
}

// CreateRisk stores a new risk, unique per (org, short description).
func (s *Store) CreateRisk(r *Risk) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&Risk{}).Where("short_description = ?", r.ShortDescription)
		if r.OrgID != nil {
			q = q.Where("org_id = ?", *r.OrgID)
		} else {
			q = q.Where("org_id IS NULL")
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return fmt.Errorf("check risk key: %w", err)
		}
		if n > 0 {
			return &entity.UniquenessViolation{Type: "risk", Key: r.ShortDescription}
		}
		if err := tx.Omit("Controls").Create(r).Error; err != nil {
			return fmt.Errorf("create risk: %w", err)
		}
		return nil
	})
}

// GetRisk retrieves a risk by id with its linked controls.
func (s *Store) GetRisk(id string) (*Risk, error) {
	var r Risk
	err := s.db.Preload("Controls").Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get risk: %w", err)
	}
	return &r, nil
}

// ListRisks returns the org's risks. A nil orgID lists unscoped records.
func (s *Store) ListRisks(orgID *string) ([]Risk, error) {
	q := s.db.Model(&Risk{})
	if orgID != nil {
		q = q.Where("org_id = ?", *orgID)
	} else {
		q = q.Where("org_id IS NULL")
	}
	var out []Risk
	if err := q.Order("short_description").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list risks: %w", err)
	}
	return out, nil
}

// CreateControl stores a new control, unique per (org, short description).
func (s *Store) CreateControl(c *Control) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = ControlEffective
	}
	if !c.Status.IsValid() {
		return &entity.InvalidEnumValue{Field: "status", Value: string(c.Status)}
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&Control{}).Where("short_description = ?", c.ShortDescription)
		if c.OrgID != nil {
			q = q.Where("org_id = ?", *c.OrgID)
		} else {
			q = q.Where("org_id IS NULL")
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return fmt.Errorf("check control key: %w", err)
		}
		if n > 0 {
			return &entity.UniquenessViolation{Type: "control", Key: c.ShortDescription}
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("create control: %w", err)
		}
		return nil
	})
}

// GetControl retrieves a control by id.
func (s *Store) GetControl(id string) (*Control, error) {
	var c Control
	err := s.db.Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get control: %w", err)
	}
	return &c, nil
}

// ListControls returns the org's controls. A nil orgID lists unscoped
// records.
func (s *Store) ListControls(orgID *string) ([]Control, error) {
	q := s.db.Model(&Control{})
	if orgID != nil {
		q = q.Where("org_id = ?", *orgID)
	} else {
		q = q.Where("org_id IS NULL")
	}
	var out []Control
	if err := q.Order("short_description").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list controls: %w", err)
	}
	return out, nil
}

// LinkControl attaches a control to a risk. Linking twice is a no-op.
func (s *Store) LinkControl(riskID, controlID string) error {
	r := Risk{ID: riskID}
	if err := s.db.Model(&r).Omit("Controls.*").
		Association("Controls").Append(&Control{ID: controlID}); err != nil {
		return fmt.Errorf("link control: %w", err)
	}
	return nil
}

// UnlinkControl detaches a control from a risk.
func (s *Store) UnlinkControl(riskID, controlID string) error {
	r := Risk{ID: riskID}
	if err := s.db.Model(&r).Association("Controls").Delete(&Control{ID: controlID}); err != nil {
		return fmt.Errorf("unlink control: %w", err)
	}
	return nil
}
