package outbox

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
)

func TestWriterAppendCommitsWithTransaction(t *testing.T) {
	db := newTestDB(t)
	writer := NewWriter()
	occurred := time.Now().UTC().Truncate(time.Second)

	err := db.Transaction(func(tx *gorm.DB) error {
		return writer.Append(tx, []Event{
			{Type: EventTicketCreated, Payload: map[string]string{"ticket_id": "t-1"}, OccurredAt: occurred},
			{Type: EventTicketAssigned, Payload: map[string]string{"ticket_id": "t-1", "assignee": "sam"}, OccurredAt: occurred.Add(time.Second)},
		})
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	var rows []models.OutboxMessage
	if err := db.Order("occurred_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Type != EventTicketCreated || rows[1].Type != EventTicketAssigned {
		t.Fatal("expected insertion order preserved by occurred_at")
	}

	var payload map[string]string
	if err := json.Unmarshal(rows[1].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["assignee"] != "sam" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if rows[0].PublishedAt != nil || rows[0].Attempts != 0 {
		t.Fatal("new rows must start unpublished with zero attempts")
	}
	if !rows[0].NextAttemptAt.Equal(rows[0].OccurredAt) {
		t.Fatal("new rows must be immediately eligible")
	}
}

func TestWriterAppendRollsBackWithTransaction(t *testing.T) {
	db := newTestDB(t)
	writer := NewWriter()

	sentinel := errors.New("ticket insert failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := writer.Append(tx, []Event{{Type: EventTicketCreated, Payload: map[string]string{"ticket_id": "t-1"}}}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	var count int64
	if err := db.Model(&models.OutboxMessage{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to discard outbox rows, got %d", count)
	}
}

func TestWriterAppendRequiresTransaction(t *testing.T) {
	writer := NewWriter()
	if err := writer.Append(nil, []Event{{Type: EventTicketCreated}}); err == nil {
		t.Fatal("expected error for nil transaction")
	}
}
