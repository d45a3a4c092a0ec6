package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpdeskhq/ticketflow-backend/pkg/enums"
)

// Ticket is the support ticket aggregate.
type Ticket struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Title         string               `gorm:"column:title;not null"`
	Description   string               `gorm:"column:description;not null"`
	CustomerEmail string               `gorm:"column:customer_email;not null"`
	Status        enums.TicketStatus   `gorm:"column:status;type:ticket_status;not null"`
	Priority      enums.TicketPriority `gorm:"column:priority;type:ticket_priority;not null"`
	Category      enums.TicketCategory `gorm:"column:category;type:ticket_category;not null"`
	Assignee      *string              `gorm:"column:assignee"`
	CreatedAt     time.Time            `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;not null"`
}

func (Ticket) TableName() string {
	return "tickets"
}
