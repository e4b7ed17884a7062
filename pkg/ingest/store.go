package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

// Store persists sync runs and raw records.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the sync_runs and raw_records tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&SyncRun{}); err != nil {
		return fmt.Errorf("auto-migrate sync_runs: %w", err)
	}
	if err := s.db.AutoMigrate(&RawRecord{}); err != nil {
		return fmt.Errorf("auto-migrate raw_records: %w", err)
	}
	return nil
}

// CreateRun opens a sync run for one source, started now, success false.
func (s *Store) CreateRun(source entity.SourceSystem) (*SyncRun, error) {
	if !source.IsValid() {
		return nil, &entity.InvalidEnumValue{Field: "source", Value: string(source)}
	}
	run := SyncRun{
		ID:        uuid.New().String(),
		Source:    source,
		StartedAt: time.Now().UTC(),
		Success:   false,
	}
	if err := s.db.Create(&run).Error; err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}
	return &run, nil
}

// FinishRun sets the run's terminal state. FinishedAt is written exactly
// once; finishing an already-finished run is a no-op so that both the success
// path and the failure path can call it safely.
func (s *Store) FinishRun(runID string, success bool, summary, errText string) error {
	now := time.Now().UTC()
	res := s.db.Model(&SyncRun{}).
		Where("id = ? AND finished_at IS NULL", runID).
		Updates(map[string]any{
			"finished_at": now,
			"success":     success,
			"summary":     summary,
			"error":       errText,
		})
	if res.Error != nil {
		return fmt.Errorf("finish sync run: %w", res.Error)
	}
	return nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(id string) (*SyncRun, error) {
	var run SyncRun
	err := s.db.Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync run: %w", err)
	}
	return &run, nil
}

// RunListFilter narrows ListRuns results.
type RunListFilter struct {
	Source  *entity.SourceSystem
	Success *bool
	Limit   int
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(f RunListFilter) ([]SyncRun, error) {
	q := s.db.Model(&SyncRun{})
	if f.Source != nil {
		q = q.Where("source = ?", *f.Source)
	}
	if f.Success != nil {
		q = q.Where("success = ?", *f.Success)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []SyncRun
	if err := q.Order("started_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	return out, nil
}

// AppendRecord writes one raw record under the given run.
func (s *Store) AppendRecord(rec *RawRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("append raw record: %w", err)
	}
	return nil
}

// GetRecord retrieves a raw record by id.
func (s *Store) GetRecord(id string) (*RawRecord, error) {
	var rec RawRecord
	err := s.db.Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get raw record: %w", err)
	}
	return &rec, nil
}

// RecordListFilter narrows ListRecords results.
type RecordListFilter struct {
	SyncRunID  *string
	Source     *entity.SourceSystem
	RecordType *string
	Processed  *bool
	// FailedOnly selects records with a non-empty processing error: the
	// operator work queue.
	FailedOnly bool
	Limit      int
}

// ListRecords returns raw records in insertion order.
func (s *Store) ListRecords(f RecordListFilter) ([]RawRecord, error) {
	q := s.db.Model(&RawRecord{})
	if f.SyncRunID != nil {
		q = q.Where("sync_run_id = ?", *f.SyncRunID)
	}
	if f.Source != nil {
		q = q.Where("source = ?", *f.Source)
	}
	if f.RecordType != nil {
		q = q.Where("record_type = ?", *f.RecordType)
	}
	if f.Processed != nil {
		q = q.Where("processed = ?", *f.Processed)
	}
	if f.FailedOnly {
		q = q.Where("processed = ? AND processing_error <> ''", false)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []RawRecord
	if err := q.Order("created_at, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list raw records: %w", err)
	}
	return out, nil
}

// ClaimNext atomically claims one unprocessed raw record for normalization.
// The claim is a lease: records whose lease is older than staleAfter are
// reclaimed, so a crashed worker cannot strand a record forever. Returns
// (nil, nil) when nothing is claimable. Only records whose run has finished
// are eligible, keeping normalization safe to run alongside active ingestion.
func (s *Store) ClaimNext(staleAfter time.Duration) (*RawRecord, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-staleAfter)

	var claimed *RawRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rec RawRecord
		err := tx.
			Where("processed = ?", false).
			Where("claimed_at IS NULL OR claimed_at < ?", cutoff).
			Where("sync_run_id IS NULL OR sync_run_id IN (?)",
				tx.Model(&SyncRun{}).Select("id").Where("finished_at IS NOT NULL")).
			Order("created_at, id").
			First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find claimable record: %w", err)
		}

		// Compare-and-set on the lease; a concurrent worker loses the race
		// and claims nothing.
		res := tx.Model(&RawRecord{}).
			Where("id = ? AND processed = ? AND (claimed_at IS NULL OR claimed_at < ?)",
				rec.ID, false, cutoff).
			Update("claimed_at", now)
		if res.Error != nil {
			return fmt.Errorf("claim record: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		rec.ClaimedAt = &now
		claimed = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkProcessed marks a record successfully normalized and releases its
// claim.
func (s *Store) MarkProcessed(id string) error {
	err := s.db.Model(&RawRecord{}).Where("id = ?", id).
		Updates(map[string]any{
			"processed":        true,
			"processing_error": "",
			"claimed_at":       nil,
		}).Error
	if err != nil {
		return fmt.Errorf("mark record processed: %w", err)
	}
	return nil
}

// MarkFailed records a normalization failure on the record. The claim is
// kept: the record stays unprocessed and surfaces on the failed listing, but
// is not claimable again until its lease expires, so a permanently failing
// record cannot spin a worker within one pass.
func (s *Store) MarkFailed(id, msg string) error {
	err := s.db.Model(&RawRecord{}).Where("id = ?", id).
		Updates(map[string]any{
			"processed":        false,
			"processing_error": msg,
		}).Error
	if err != nil {
		return fmt.Errorf("mark record failed: %w", err)
	}
	return nil
}
