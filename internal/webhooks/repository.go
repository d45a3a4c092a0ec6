package webhooks

import (
	"gorm.io/gorm"

	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
)

// UniqueReceiptConstraint is the unique index on (provider, event_id). The
// service treats a violation as a concurrent duplicate delivery, not a fault.
const UniqueReceiptConstraint = "ux_webhook_receipts_provider_event"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertReceiptTx records one processed delivery inside the caller's
// transaction.
func (r *Repository) InsertReceiptTx(tx *gorm.DB, receipt *models.WebhookReceipt) error {
	return tx.Create(receipt).Error
}
