package graph

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

// Store provides edge persistence and query operations.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the entity_relationships table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Edge{})
}

// Upsert records a relationship assertion. The conflict key is
// (from, to, type, source): the same source re-asserting a fact updates
// confidence and last_confirmed_at in place, while a second source asserting
// the same fact creates a distinct edge. Provenance is never merged across
// sources.
func (s *Store) Upsert(from, to entity.Ref, relType RelationshipType, source entity.SourceSystem, confidence float64, confirmedAt *time.Time) (*Edge, error) {
	if err := from.Validate(); err != nil {
		return nil, fmt.Errorf("from endpoint: %w", err)
	}
	if err := to.Validate(); err != nil {
		return nil, fmt.Errorf("to endpoint: %w", err)
	}
	if !relType.IsValid() {
		return nil, &entity.InvalidEnumValue{Field: "relationship_type", Value: string(relType)}
	}
	if source == "" {
		source = entity.SourceManual
	}
	if !source.IsValid() {
		return nil, &entity.InvalidEnumValue{Field: "source", Value: string(source)}
	}
	if confidence < 0.0 || confidence > 1.0 {
		return nil, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}

	edge := Edge{
		ID:               uuid.New().String(),
		FromEntityType:   from.Type,
		FromEntityID:     from.ID,
		ToEntityType:     to.Type,
		ToEntityID:       to.ID,
		RelationshipType: relType,
		Source:           source,
		Confidence:       confidence,
		LastConfirmedAt:  confirmedAt,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "from_entity_type"}, {Name: "from_entity_id"},
			{Name: "to_entity_type"}, {Name: "to_entity_id"},
			{Name: "relationship_type"}, {Name: "source"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"confidence", "last_confirmed_at", "updated_at"}),
	}).Create(&edge).Error
	if err != nil {
		return nil, fmt.Errorf("upsert edge: %w", err)
	}

	// Re-read so the caller sees the stored row (the conflict path keeps the
	// original id and created_at).
	var stored Edge
	err = s.db.Where(
		"from_entity_type = ? AND from_entity_id = ? AND to_entity_type = ? AND to_entity_id = ? AND relationship_type = ? AND source = ?",
		from.Type, from.ID, to.Type, to.ID, relType, source,
	).First(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("read back edge: %w", err)
	}
	return &stored, nil
}

// Filter narrows Query results. Zero-valued fields are ignored.
type Filter struct {
	From             *entity.Ref
	To               *entity.Ref
	RelationshipType *RelationshipType
	Source           *entity.SourceSystem
	MinConfidence    *float64
}

func (s *Store) filtered(f Filter) *gorm.DB {
	q := s.db.Model(&Edge{})
	if f.From != nil {
		q = q.Where("from_entity_type = ? AND from_entity_id = ?", f.From.Type, f.From.ID)
	}
	if f.To != nil {
		q = q.Where("to_entity_type = ? AND to_entity_id = ?", f.To.Type, f.To.ID)
	}
	if f.RelationshipType != nil {
		q = q.Where("relationship_type = ?", *f.RelationshipType)
	}
	if f.Source != nil {
		q = q.Where("source = ?", *f.Source)
	}
	if f.MinConfidence != nil {
		q = q.Where("confidence >= ?", *f.MinConfidence)
	}
	return q
}

// Query returns every edge matching the filter. Each call re-runs the
// statement, so a caller may restart the sequence at any time.
func (s *Store) Query(f Filter) ([]Edge, error) {
	var out []Edge
	if err := s.filtered(f).Order("created_at, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	return out, nil
}

// QueryBatches streams matching edges to fn in fixed-size batches, bounding
// memory on large graphs. fn returning an error stops the scan. The scan is
// ordered by primary key: FindInBatches continues from the last id seen, so
// any other ordering would make the continuation predicate skip rows.
func (s *Store) QueryBatches(f Filter, batchSize int, fn func([]Edge) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []Edge
	err := s.filtered(f).Order("id").FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
	if err != nil {
		return fmt.Errorf("query edges in batches: %w", err)
	}
	return nil
}

// Direction selects which edges Neighbors considers.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// Neighbors returns edges touching the given entity in the requested
// direction, optionally restricted to one relationship type.
func (s *Store) Neighbors(ref entity.Ref, dir Direction, relType *RelationshipType) ([]Edge, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	q := s.db.Model(&Edge{})
	switch dir {
	case DirectionOutgoing:
		q = q.Where("from_entity_type = ? AND from_entity_id = ?", ref.Type, ref.ID)
	case DirectionIncoming:
		q = q.Where("to_entity_type = ? AND to_entity_id = ?", ref.Type, ref.ID)
	case DirectionBoth:
		q = q.Where(
			"(from_entity_type = ? AND from_entity_id = ?) OR (to_entity_type = ? AND to_entity_id = ?)",
			ref.Type, ref.ID, ref.Type, ref.ID,
		)
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
	if relType != nil {
		q = q.Where("relationship_type = ?", *relType)
	}
	var out []Edge
	if err := q.Order("created_at, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("neighbors of %s: %w", ref, err)
	}
	return out, nil
}

// Delete removes an edge by id.
func (s *Store) Delete(id string) error {
	return s.db.Where("id = ?", id).Delete(&Edge{}).Error
}
