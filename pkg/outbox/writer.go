package outbox

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
)

// Writer appends outbox rows for the domain events of one unit of work. It
// always runs inside the caller's transaction: the aggregate mutation and its
// events commit or roll back together. That single property is what makes
// "state changed" and "event will be delivered" an all-or-nothing pair.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Append persists one OutboxMessage per event, preserving order. The tx is
// required; a nil tx would silently break the atomicity contract.
func (w *Writer) Append(tx *gorm.DB, events []Event) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	for _, event := range events {
		if event.Type == "" {
			return errors.New("event type is required")
		}
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		occurredAt := event.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = time.Now().UTC()
		}
		row := models.OutboxMessage{
			ID:            uuid.New(),
			Type:          event.Type,
			Payload:       payload,
			OccurredAt:    occurredAt,
			NextAttemptAt: occurredAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
