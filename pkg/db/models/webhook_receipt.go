package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookReceipt is the durable record of one verified, deduplicated webhook
// delivery. The (provider, event_id) pair is unique at the schema level so the
// table stays consistent even when the ephemeral idempotency cache is lost.
// Only the payload hash is stored, never the raw payload.
type WebhookReceipt struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Provider    string     `gorm:"column:provider;not null;uniqueIndex:ux_webhook_receipts_provider_event"`
	EventID     string     `gorm:"column:event_id;not null;uniqueIndex:ux_webhook_receipts_provider_event"`
	PayloadHash string     `gorm:"column:payload_hash;not null"`
	ReceivedAt  time.Time  `gorm:"column:received_at;not null"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
}

func (WebhookReceipt) TableName() string {
	return "webhook_receipts"
}
