package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxMessage is one pending domain event, appended in the same transaction
// as the aggregate mutation that produced it and mutated only by the
// publisher worker afterwards.
//
// A row is eligible for claim iff published_at is null, the lease is free or
// expired, attempts is below the worker's retry budget, and next_attempt_at
// has passed. published_at is set exactly once; a row whose attempts reach the
// budget is never selected again and needs operator attention.
type OutboxMessage struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Type                string          `gorm:"column:type;not null"`
	Payload             json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	OccurredAt          time.Time       `gorm:"column:occurred_at;not null"`
	PublishedAt         *time.Time      `gorm:"column:published_at"`
	Attempts            int             `gorm:"column:attempts;not null;default:0"`
	LastError           *string         `gorm:"column:last_error"`
	IsProcessing        bool            `gorm:"column:is_processing;not null;default:false"`
	ProcessingStartedAt *time.Time      `gorm:"column:processing_started_at"`
	NextAttemptAt       time.Time       `gorm:"column:next_attempt_at;not null"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}
