// Package graph stores directed, typed relationships between entities of any
// category. Edges carry provenance, a confidence score, and the time the
// asserting source last confirmed the fact. Cycles and self-loops are legal;
// real infrastructure graphs contain them.
package graph

import (
	"fmt"
	"time"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

// RelationshipType classifies an edge.
type RelationshipType string

const (
	RelRunsIn      RelationshipType = "runs_in"
	RelHostedIn    RelationshipType = "hosted_in"
	RelDependsOn   RelationshipType = "depends_on"
	RelConnectedTo RelationshipType = "connected_to"
	RelBacksUp     RelationshipType = "backs_up"
	RelParentOf    RelationshipType = "parent_of"
	RelLocatedAt   RelationshipType = "located_at"
	RelOwns        RelationshipType = "owns"
	RelUses        RelationshipType = "uses"
	RelAdminOf     RelationshipType = "admin_of"
	RelHasAccessTo RelationshipType = "has_access_to"
	RelMemberOf    RelationshipType = "member_of"
	RelManages     RelationshipType = "manages"
	RelAssumesRole RelationshipType = "assumes_role"
	RelOther       RelationshipType = "other"
)

// RelationshipTypes lists every relationship type.
var RelationshipTypes = []RelationshipType{
	RelRunsIn,
	RelHostedIn,
	RelDependsOn,
	RelConnectedTo,
	RelBacksUp,
	RelParentOf,
	RelLocatedAt,
	RelOwns,
	RelUses,
	RelAdminOf,
	RelHasAccessTo,
	RelMemberOf,
	RelManages,
	RelAssumesRole,
	RelOther,
}

// IsValid reports whether the relationship type is recognized.
func (t RelationshipType) IsValid() bool {
	for _, v := range RelationshipTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Edge is one directed relationship assertion. Endpoints are generic
// (category, id) pairs because the graph spans heterogeneous categories;
// referential integrity is checked at the application layer, not by the
// storage engine.
type Edge struct {
	ID               string              `gorm:"primaryKey;column:id;type:varchar(36)"`
	FromEntityType   entity.Type         `gorm:"column:from_entity_type;uniqueIndex:idx_edge_tuple,priority:1;index:idx_edge_from,priority:1;not null"`
	FromEntityID     string              `gorm:"column:from_entity_id;type:varchar(36);uniqueIndex:idx_edge_tuple,priority:2;index:idx_edge_from,priority:2;not null"`
	ToEntityType     entity.Type         `gorm:"column:to_entity_type;uniqueIndex:idx_edge_tuple,priority:3;index:idx_edge_to,priority:1;not null"`
	ToEntityID       string              `gorm:"column:to_entity_id;type:varchar(36);uniqueIndex:idx_edge_tuple,priority:4;index:idx_edge_to,priority:2;not null"`
	RelationshipType RelationshipType    `gorm:"column:relationship_type;uniqueIndex:idx_edge_tuple,priority:5;index;not null"`
	Source           entity.SourceSystem `gorm:"column:source;uniqueIndex:idx_edge_tuple,priority:6;default:manual"`
	// No default tag: GORM omits zero-valued fields carrying one from the
	// INSERT, and 0.0 is a legal confidence.
	Confidence      float64    `gorm:"column:confidence"`
	LastConfirmedAt *time.Time `gorm:"column:last_confirmed_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Edge) TableName() string { return "entity_relationships" }

// From returns the source endpoint.
func (e *Edge) From() entity.Ref {
	return entity.Ref{Type: e.FromEntityType, ID: e.FromEntityID}
}

// To returns the target endpoint.
func (e *Edge) To() entity.Ref {
	return entity.Ref{Type: e.ToEntityType, ID: e.ToEntityID}
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", e.From(), e.RelationshipType, e.To())
}
