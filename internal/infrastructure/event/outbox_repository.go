package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dukapos/backend/internal/domain/shared"
)

// GormOutboxRepository persists outbox entries with GORM. Entries land in
// the outbox_entries table, written inside the same transaction as the
// aggregate change that produced them.
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new outbox repository. Pass a
// transaction handle to write entries inside that transaction.
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Save persists one or more outbox entries
func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(entries).Error; err != nil {
		return fmt.Errorf("saving outbox entries: %w", err)
	}
	return nil
}

// FindPending retrieves pending entries, oldest first
func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	var entries []*shared.OutboxEntry
	err := r.db.WithContext(ctx).
		Where("status = ?", shared.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("finding pending outbox entries: %w", err)
	}
	return entries, nil
}

// FindRetryable retrieves failed entries whose backoff has elapsed
func (r *GormOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var entries []*shared.OutboxEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", shared.OutboxStatusFailed, before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("finding retryable outbox entries: %w", err)
	}
	return entries, nil
}

// FindDead retrieves dead letter entries with pagination, most recently
// failed first.
func (r *GormOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Where("status = ?", shared.OutboxStatusDead)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting dead letter entries: %w", err)
	}

	var entries []*shared.OutboxEntry
	err := query.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("finding dead letter entries: %w", err)
	}
	return entries, total, nil
}

// FindByID retrieves a single entry, or nil when no entry exists
func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var entry shared.OutboxEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding outbox entry: %w", err)
	}
	return &entry, nil
}

// MarkProcessing atomically claims the given entries for processing and
// returns the claimed set. Rows already locked by a concurrent processor
// are skipped, so two processors never deliver the same entry.
func (r *GormOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var claimed []*shared.OutboxEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []*shared.OutboxEntry
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id IN ? AND status IN ?", ids,
				[]shared.OutboxStatus{shared.OutboxStatusPending, shared.OutboxStatusFailed}).
			Find(&entries).Error
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		claimedIDs := make([]uuid.UUID, len(entries))
		now := time.Now()
		for i, entry := range entries {
			entry.Status = shared.OutboxStatusProcessing
			entry.UpdatedAt = now
			claimedIDs[i] = entry.ID
		}

		err = tx.Model(&shared.OutboxEntry{}).
			Where("id IN ?", claimedIDs).
			Updates(map[string]interface{}{
				"status":     shared.OutboxStatusProcessing,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}

		claimed = entries
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claiming outbox entries: %w", err)
	}
	return claimed, nil
}

// Update persists the full state of an existing entry
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	err := r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":        entry.Status,
			"retry_count":   entry.RetryCount,
			"last_error":    entry.LastError,
			"next_retry_at": entry.NextRetryAt,
			"processed_at":  entry.ProcessedAt,
			"updated_at":    entry.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("updating outbox entry: %w", err)
	}
	return nil
}

// DeleteOlderThan removes sent entries processed before the given time
// and returns the number of rows removed.
func (r *GormOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&shared.OutboxEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleaning up outbox entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountByStatus returns the number of entries per status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status shared.OutboxStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting outbox entries: %w", err)
	}

	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
