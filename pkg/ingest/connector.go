// Package ingest implements the connector contract and the fetch-and-persist
// pipeline. One sync run covers one connector invocation; raw payloads are
// stored durably before any normalization so a parsing bug downstream never
// loses source data.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

// ConnectorConfig configures one connector instance. Priority breaks
// conflicts between sources; lower values win.
type ConnectorConfig struct {
	Source   entity.SourceSystem `mapstructure:"source"`
	Enabled  bool                `mapstructure:"enabled"`
	Priority int                 `mapstructure:"priority"`
	// Properties carries connector-specific settings such as file paths or
	// endpoint URLs.
	Properties map[string]any `mapstructure:"properties"`
}

// RecordIterator produces raw payloads one at a time. The sequence is finite
// and not restartable; one iterator serves exactly one ingest.
// Next returns ErrEndOfRecords when the sequence is exhausted.
type RecordIterator interface {
	Next(ctx context.Context) (map[string]any, error)
}

// Connector is implemented once per external source: ServiceNow, Flexera,
// Okta, AD, Duo, cloud providers, manual import.
type Connector interface {
	// Config returns the connector's configuration.
	Config() ConnectorConfig
	// FetchRecords opens the source's record stream for one ingest.
	FetchRecords(ctx context.Context) (RecordIterator, error)
	// RecordType names the source-side class/table/type, e.g. cmdb_ci_server.
	RecordType() string
	// ExternalIDFromPayload extracts the source's native id from a payload.
	// Best effort; an empty string is permitted.
	ExternalIDFromPayload(payload map[string]any) string
}

// Factory builds a connector from its configuration.
type Factory func(cfg ConnectorConfig) (Connector, error)

var (
	registryMu sync.RWMutex
	registry   = map[entity.SourceSystem]Factory{}
)

// Register adds a connector factory for a source system. Registering the same
// source twice panics; it indicates conflicting connector packages.
func Register(source entity.SourceSystem, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[source]; dup {
		panic(fmt.Sprintf("ingest: connector for %s registered twice", source))
	}
	registry[source] = f
}

// NewConnector builds a connector for the configured source from the
// registry.
func NewConnector(cfg ConnectorConfig) (Connector, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Source]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no connector registered for source %q", cfg.Source)
	}
	return f(cfg)
}

// Sources lists every registered source system, sorted.
func Sources() []entity.SourceSystem {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]entity.SourceSystem, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SliceIterator adapts an in-memory payload slice to RecordIterator. Used by
// the manual connector and by tests.
type SliceIterator struct {
	records []map[string]any
	pos     int
}

// NewSliceIterator wraps records in an iterator.
func NewSliceIterator(records []map[string]any) *SliceIterator {
	return &SliceIterator{records: records}
}

// Next implements RecordIterator.
func (it *SliceIterator) Next(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.records) {
		return nil, ErrEndOfRecords
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, nil
}
