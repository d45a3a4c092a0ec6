package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AIAuditLog records one classifier call: what was sent, what came back, and
// the token spend. Written in the same transaction as the classification it
// produced.
type AIAuditLog struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TicketID         uuid.UUID       `gorm:"column:ticket_id;type:uuid;not null;index"`
	Provider         string          `gorm:"column:provider;not null"`
	Model            string          `gorm:"column:model;not null"`
	PromptVersion    string          `gorm:"column:prompt_version;not null"`
	RequestJSON      json.RawMessage `gorm:"column:request_json;type:jsonb;not null"`
	ResponseJSON     json.RawMessage `gorm:"column:response_json;type:jsonb;not null"`
	PromptTokens     *int            `gorm:"column:prompt_tokens"`
	CompletionTokens *int            `gorm:"column:completion_tokens"`
	CreatedAt        time.Time       `gorm:"column:created_at;not null"`
}

func (AIAuditLog) TableName() string {
	return "ai_audit_logs"
}
