package tickets

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpdeskhq/ticketflow-backend/pkg/enums"
)

// Event payloads are serialized into outbox rows and consumed by external
// systems. Field names are a wire contract.

type TicketCreatedPayload struct {
	TicketID      uuid.UUID            `json:"ticket_id"`
	Title         string               `json:"title"`
	CustomerEmail string               `json:"customer_email"`
	Status        enums.TicketStatus   `json:"status"`
	Priority      enums.TicketPriority `json:"priority"`
	Category      enums.TicketCategory `json:"category"`
	CreatedAt     time.Time            `json:"created_at"`
}

type TicketClassifiedPayload struct {
	TicketID     uuid.UUID            `json:"ticket_id"`
	Priority     enums.TicketPriority `json:"priority"`
	Category     enums.TicketCategory `json:"category"`
	ClassifiedAt time.Time            `json:"classified_at"`
}

type TicketAssignedPayload struct {
	TicketID   uuid.UUID `json:"ticket_id"`
	Assignee   string    `json:"assignee"`
	AssignedAt time.Time `json:"assigned_at"`
}
