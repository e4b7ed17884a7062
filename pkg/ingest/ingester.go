package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

// ErrConnectorDisabled is returned when Ingest is called for a connector
// whose configuration has Enabled=false. No run is created.
var ErrConnectorDisabled = errors.New("connector disabled")

// Ingester runs the fetch-and-persist cycle. Records are written strictly in
// source order, so an aborted run leaves a deterministic prefix of the
// source's result set behind. Two concurrent runs for the same source must be
// serialized by the caller; the pipeline does not enforce that.
type Ingester struct {
	store  *Store
	logger *slog.Logger
}

// NewIngester creates an Ingester.
func NewIngester(store *Store, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{store: store, logger: logger}
}

// Ingest executes one sync run for the connector. The whole fetch loop sits
// inside a single failure boundary: any error during fetch or persist stops
// further fetching, marks the run failed with the error text, and keeps the
// raw records already written. FinishedAt is set exactly once, as the last
// step, on every path.
func (g *Ingester) Ingest(ctx context.Context, c Connector) (*SyncRun, error) {
	cfg := c.Config()
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrConnectorDisabled, cfg.Source)
	}

	run, err := g.store.CreateRun(cfg.Source)
	if err != nil {
		return nil, err
	}
	g.logger.Info("sync run started", "run", run.ID, "source", cfg.Source)

	count, loopErr := g.fetchLoop(ctx, c, run)

	var finishErr error
	if loopErr != nil {
		finishErr = g.store.FinishRun(run.ID, false, "", loopErr.Error())
		g.logger.Error("sync run failed",
			"run", run.ID, "source", cfg.Source, "records", count, "error", loopErr)
	} else {
		summary := fmt.Sprintf("Ingest complete. %d records.", count)
		finishErr = g.store.FinishRun(run.ID, true, summary, "")
		g.logger.Info("sync run finished", "run", run.ID, "source", cfg.Source, "records", count)
	}
	if finishErr != nil {
		return nil, finishErr
	}

	finished, err := g.store.GetRun(run.ID)
	if err != nil {
		return nil, err
	}
	if loopErr != nil {
		return finished, &IngestionFailure{Source: cfg.Source, Err: loopErr}
	}
	return finished, nil
}

// fetchLoop drains the connector's record stream sequentially, persisting
// each payload before fetching the next.
func (g *Ingester) fetchLoop(ctx context.Context, c Connector, run *SyncRun) (int, error) {
	it, err := c.FetchRecords(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for {
		payload, err := it.Next(ctx)
		if errors.Is(err, ErrEndOfRecords) {
			return count, nil
		}
		if err != nil {
			return count, err
		}

		rec := RawRecord{
			SyncRunID:  &run.ID,
			Source:     run.Source,
			RecordType: c.RecordType(),
			ExternalID: c.ExternalIDFromPayload(payload),
			Payload:    entity.JSONAny(payload),
			Processed:  false,
		}
		if err := g.store.AppendRecord(&rec); err != nil {
			return count, err
		}
		count++
	}
}
