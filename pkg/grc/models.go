// Package grc holds the tenant-scoped risk and control records and their
// many-to-many link. These are plain data next to the intelligence graph;
// nothing in the graph references them today.
package grc

import (
	"time"
)

// ControlStatus describes how well a control is performing.
type ControlStatus string

const (
	ControlEffective        ControlStatus = "Effective"
	ControlNeedsImprovement ControlStatus = "Needs Improvement"
	ControlFailing          ControlStatus = "Failing"
)

// ControlStatuses lists every control status.
var ControlStatuses = []ControlStatus{
	ControlEffective,
	ControlNeedsImprovement,
	ControlFailing,
}

// IsValid reports whether the control status is recognized.
func (c ControlStatus) IsValid() bool {
	for _, v := range ControlStatuses {
		if c == v {
			return true
		}
	}
	return false
}

// Risk is one tenant-scoped risk record.
type Risk struct {
	ID               string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrgID            *string   `gorm:"column:org_id;type:varchar(36);uniqueIndex:idx_risk_org_desc,priority:1"`
	ShortDescription string    `gorm:"column:short_description;uniqueIndex:idx_risk_org_desc,priority:2;not null"`
	LongDescription  string    `gorm:"column:long_description"`
	Controls         []Control `gorm:"many2many:risk_controls;"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Risk) TableName() string { return "risks" }

// Control is one tenant-scoped control record.
type Control struct {
	ID               string        `gorm:"primaryKey;column:id;type:varchar(36)"`
	OrgID            *string       `gorm:"column:org_id;type:varchar(36);uniqueIndex:idx_control_org_desc,priority:1"`
	ShortDescription string        `gorm:"column:short_description;uniqueIndex:idx_control_org_desc,priority:2;not null"`
	LongDescription  string        `gorm:"column:long_description"`
	Owner            string        `gorm:"column:owner"`
	Status           ControlStatus `gorm:"column:status;index;default:Effective"`
	CreatedAt        time.Time     `gorm:"column:created_at"`
	UpdatedAt        time.Time     `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Control) TableName() string { return "controls" }
