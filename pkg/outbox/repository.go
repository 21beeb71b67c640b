package outbox

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/casamarket/casa-backend/pkg/db/models"
)

// lastErrorLimit caps the stored failure text in bytes.
const lastErrorLimit = 1024

type Repository struct {
	conn *gorm.DB
	now  func() time.Time
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{conn: conn, now: func() time.Time { return time.Now().UTC() }}
}

// Insert must run on the caller's transaction so the event commits or rolls
// back with the state change.
func (r *Repository) Insert(tx *gorm.DB, event *models.OutboxEvent) error {
	if tx == nil {
		return errors.New("outbox insert needs a transaction")
	}
	return tx.Create(event).Error
}

func unpublished(tx *gorm.DB) *gorm.DB {
	return tx.Where("published_at IS NULL")
}

func retryable(maxAttempts int) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return unpublished(tx).Where("attempt_count < ?", maxAttempts)
	}
}

// FetchUnpublishedForPublish claims the oldest retryable rows. Postgres
// skips rows another relay already holds; SQLite serialises writers anyway.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	q := tx.Scopes(retryable(maxAttempts)).
		Order("created_at ASC, id ASC").
		Limit(limit)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var events []models.OutboxEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return r.update(tx, id, map[string]any{
		"published_at": r.now(),
		"last_error":   nil,
	})
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.update(tx, id, map[string]any{
		"last_error":    clip(cause.Error(), lastErrorLimit),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

func (r *Repository) update(tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	res := tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountPending counts unpublished rows, exhausted ones included. A nil tx
// reads outside any transaction.
func (r *Repository) CountPending(tx *gorm.DB) (int64, error) {
	if tx == nil {
		tx = r.conn
	}
	var n int64
	err := tx.Model(&models.OutboxEvent{}).Scopes(unpublished).Count(&n).Error
	return n, err
}

// clip trims s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
