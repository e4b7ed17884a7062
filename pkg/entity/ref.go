package entity

import "fmt"

// Ref identifies an entity generically by category plus opaque id. It is the
// polymorphic handle used wherever a component must span categories, such as
// relationship endpoints and external-id mappings.
type Ref struct {
	Type Type
	ID   string
}

// NewRef builds a Ref from a category and id.
func NewRef(t Type, id string) Ref {
	return Ref{Type: t, ID: id}
}

// IsZero reports whether the ref is unset.
func (r Ref) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// Validate checks that the category is known and the id is non-empty.
func (r Ref) Validate() error {
	if !r.Type.IsValid() {
		return &InvalidEnumValue{Field: "entity_type", Value: string(r.Type)}
	}
	if r.ID == "" {
		return fmt.Errorf("entity ref %s has empty id", r.Type)
	}
	return nil
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// HasLifecycle is implemented by entities that track a lifecycle state.
type HasLifecycle interface {
	Lifecycle() LifecycleState
	SetLifecycle(LifecycleState)
}

// HasOwnerTeam is implemented by entities that carry an optional owning team.
type HasOwnerTeam interface {
	OwnerTeam() string
	SetOwnerTeam(id string)
}

// HasSourceOfTruth is implemented by entities that record which external
// system is authoritative for them.
type HasSourceOfTruth interface {
	SourceOfTruthSystem() SourceSystem
}

// Record is the minimal surface every stored entity exposes.
type Record interface {
	Ref() Ref
}
