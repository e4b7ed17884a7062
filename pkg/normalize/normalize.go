// Package normalize turns raw records into canonical entity and relationship
// state. Normalizers are registered per (source, record type) and must be
// idempotent: reprocessing a record converges to the same entity state
// instead of creating duplicates.
package normalize

import (
	"context"
	"fmt"
	"sync"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
)

// NormalizationFailure wraps a per-record normalization error. It is recorded
// on the raw record and never fails the owning sync run; the record stays
// unprocessed and is retried on the next pass.
type NormalizationFailure struct {
	RecordID string
	Err      error
}

func (e *NormalizationFailure) Error() string {
	return fmt.Sprintf("normalize record %s: %v", e.RecordID, e.Err)
}

func (e *NormalizationFailure) Unwrap() error { return e.Err }

// Normalizer maps one raw record into registry rows, external-id links, and
// relationship edges through the provided Env.
type Normalizer interface {
	Normalize(ctx context.Context, env *Env, rec *ingest.RawRecord) error
}

// NormalizerFunc adapts a function to the Normalizer interface.
type NormalizerFunc func(ctx context.Context, env *Env, rec *ingest.RawRecord) error

// Normalize implements Normalizer.
func (f NormalizerFunc) Normalize(ctx context.Context, env *Env, rec *ingest.RawRecord) error {
	return f(ctx, env, rec)
}

type normalizerKey struct {
	source     entity.SourceSystem
	recordType string
}

var (
	registryMu sync.RWMutex
	registry   = map[normalizerKey]Normalizer{}
)

// Register adds a normalizer for one (source, record type) pair. Registering
// the same pair twice panics.
func Register(source entity.SourceSystem, recordType string, n Normalizer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	k := normalizerKey{source: source, recordType: recordType}
	if _, dup := registry[k]; dup {
		panic(fmt.Sprintf("normalize: normalizer for %s/%s registered twice", source, recordType))
	}
	registry[k] = n
}

// Lookup finds the normalizer for a (source, record type) pair.
func Lookup(source entity.SourceSystem, recordType string) (Normalizer, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	n, ok := registry[normalizerKey{source: source, recordType: recordType}]
	return n, ok
}
