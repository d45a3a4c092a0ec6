package outbox

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
)

// eligibleClause encodes the claim-eligibility invariant: unpublished, lease
// free or expired, retry budget left, and past its next attempt time.
const eligibleClause = "published_at IS NULL" +
	" AND (is_processing = ? OR processing_started_at < ?)" +
	" AND attempts < ?" +
	" AND next_attempt_at <= ?"

// Repository owns every mutation of outbox rows after their initial insert.
// The conditional-update claim is the only concurrency control the publisher
// relies on; it has to work across processes, so no in-memory lock appears
// anywhere here.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FetchEligible returns up to limit claimable rows in occurred_at order.
// FIFO is best effort: retries and lease reclaims reorder delivery.
func (r *Repository) FetchEligible(now time.Time, limit, maxAttempts int, lease time.Duration) ([]models.OutboxMessage, error) {
	var rows []models.OutboxMessage
	err := r.db.
		Where(eligibleClause, false, now.Add(-lease), maxAttempts, now).
		Order("occurred_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Claim attempts the atomic conditional claim. Zero rows affected means
// another worker instance won the race; that is a skip, not an error.
func (r *Repository) Claim(id uuid.UUID, now time.Time, lease time.Duration) (bool, error) {
	res := r.db.Model(&models.OutboxMessage{}).
		Where("id = ? AND published_at IS NULL AND (is_processing = ? OR processing_started_at < ?)",
			id, false, now.Add(-lease)).
		Updates(map[string]any{
			"is_processing":         true,
			"processing_started_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkPublished records terminal success and releases the claim.
func (r *Repository) MarkPublished(id uuid.UUID, now time.Time) error {
	return r.db.Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at":          now,
			"is_processing":         false,
			"processing_started_at": nil,
		}).Error
}

// MarkFailed records a publish failure, bumps the attempt counter, schedules
// the next retry, and returns the row to the pending pool.
func (r *Repository) MarkFailed(id uuid.UUID, cause error, nextAttemptAt time.Time) error {
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	return r.db.Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":              gorm.Expr("attempts + 1"),
			"last_error":            lastError,
			"is_processing":         false,
			"processing_started_at": nil,
			"next_attempt_at":       nextAttemptAt,
		}).Error
}
