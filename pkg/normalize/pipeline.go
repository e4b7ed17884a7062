package normalize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cisoworks/asset-intelligence/pkg/ingest"
)

// Pipeline drives normalization over unprocessed raw records. It is
// decoupled in time from ingestion: it pulls records whose run has finished,
// claims each with a lease, and records per-record failures on the record
// itself rather than on the run.
type Pipeline struct {
	env    *Env
	store  *ingest.Store
	cfg    *Config
	logger *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(env *Env, store *ingest.Store, cfg *Config, logger *slog.Logger) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{env: env, store: store, cfg: cfg, logger: logger}
}

// ProcessOne normalizes a single claimed record. Success marks it processed;
// failure records the error and leaves it unprocessed, holding the lease so
// the retry falls to a later pass. A missing normalizer counts as a failure
// so the record surfaces on the operator work queue instead of silently
// aging.
func (p *Pipeline) ProcessOne(ctx context.Context, rec *ingest.RawRecord) error {
	n, ok := Lookup(rec.Source, rec.RecordType)
	if !ok {
		msg := fmt.Sprintf("no normalizer registered for %s/%s", rec.Source, rec.RecordType)
		if err := p.store.MarkFailed(rec.ID, msg); err != nil {
			return err
		}
		return &NormalizationFailure{RecordID: rec.ID, Err: fmt.Errorf("%s", msg)}
	}

	if err := n.Normalize(ctx, p.env, rec); err != nil {
		p.logger.Warn("normalization failed",
			"record", rec.ID, "source", rec.Source, "recordType", rec.RecordType, "error", err)
		if markErr := p.store.MarkFailed(rec.ID, err.Error()); markErr != nil {
			return markErr
		}
		return &NormalizationFailure{RecordID: rec.ID, Err: err}
	}

	return p.store.MarkProcessed(rec.ID)
}

// ProcessAvailable claims and processes records until none are claimable.
// Per-record failures do not stop the pass, and failed records stay leased,
// so the loop always terminates even when a record fails on every attempt.
// Returns how many records were processed successfully.
func (p *Pipeline) ProcessAvailable(ctx context.Context) (int, error) {
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		rec, err := p.store.ClaimNext(p.cfg.ClaimTimeout)
		if err != nil {
			return processed, err
		}
		if rec == nil {
			return processed, nil
		}
		if err := p.ProcessOne(ctx, rec); err == nil {
			processed++
		}
	}
}
