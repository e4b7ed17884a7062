package entity

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup by id or natural key matches nothing.
var ErrNotFound = errors.New("entity not found")

// UniquenessViolation reports a natural-key or identifier collision on write.
// It is surfaced to the caller and never retried automatically.
type UniquenessViolation struct {
	Type Type
	Key  string
}

func (e *UniquenessViolation) Error() string {
	return fmt.Sprintf("uniqueness violation: %s with key %q already exists", e.Type, e.Key)
}

// InvalidEnumValue reports a write carrying a value outside a fixed
// enumeration. The write is rejected before persistence.
type InvalidEnumValue struct {
	Field string
	Value string
}

func (e *InvalidEnumValue) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Field)
}

// ConflictingExternalID reports that a (source, external id) pair already
// resolves to a different entity. Silent overwrite would corrupt correlation
// history, so the caller must reconcile manually.
type ConflictingExternalID struct {
	Source     SourceSystem
	ExternalID string
	Existing   Ref
	Attempted  Ref
}

func (e *ConflictingExternalID) Error() string {
	return fmt.Sprintf("external id %s:%s already linked to %s, cannot link to %s",
		e.Source, e.ExternalID, e.Existing, e.Attempted)
}
