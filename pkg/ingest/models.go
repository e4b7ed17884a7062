package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

// ErrEndOfRecords signals the end of a connector's record stream.
var ErrEndOfRecords = errors.New("end of records")

// IngestionFailure wraps a connector fetch or persist error. It aborts the
// remainder of the run's fetch loop; already-written raw records are kept.
type IngestionFailure struct {
	Source entity.SourceSystem
	Err    error
}

func (e *IngestionFailure) Error() string {
	return fmt.Sprintf("ingestion from %s failed: %v", e.Source, e.Err)
}

func (e *IngestionFailure) Unwrap() error { return e.Err }

// SyncRun records one ingestion attempt against one source. Terminal once
// FinishedAt is set; runs are never resumed or mutated afterward.
type SyncRun struct {
	ID         string              `gorm:"primaryKey;column:id;type:varchar(36)"`
	Source     entity.SourceSystem `gorm:"column:source;index;not null"`
	StartedAt  time.Time           `gorm:"column:started_at;not null"`
	FinishedAt *time.Time          `gorm:"column:finished_at"`
	Success    bool                `gorm:"column:success;default:false"`
	Summary    string              `gorm:"column:summary"`
	Error      string              `gorm:"column:error"`
	CreatedAt  time.Time           `gorm:"column:created_at"`
	UpdatedAt  time.Time           `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (SyncRun) TableName() string { return "sync_runs" }

// Finished reports whether the run reached its terminal state.
func (r *SyncRun) Finished() bool { return r.FinishedAt != nil }

// RawRecord is an immutable copy of one fetched payload. Only Processed,
// ProcessingError, and the claim lease change after the row is written; the
// normalizer owns those fields.
type RawRecord struct {
	ID              string              `gorm:"primaryKey;column:id;type:varchar(36)"`
	SyncRunID       *string             `gorm:"column:sync_run_id;type:varchar(36);index"`
	Source          entity.SourceSystem `gorm:"column:source;index:idx_raw_source_type,priority:1;not null"`
	RecordType      string              `gorm:"column:record_type;index:idx_raw_source_type,priority:2;not null"`
	ExternalID      string              `gorm:"column:external_id;index"`
	Payload         entity.JSONAny      `gorm:"column:payload;type:text"`
	Processed       bool                `gorm:"column:processed;index;default:false"`
	ProcessingError string              `gorm:"column:processing_error"`
	ClaimedAt       *time.Time          `gorm:"column:claimed_at"`
	CreatedAt       time.Time           `gorm:"column:created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (RawRecord) TableName() string { return "raw_records" }
