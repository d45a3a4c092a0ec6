package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
	"github.com/helpdeskhq/ticketflow-backend/pkg/enums"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
	"github.com/helpdeskhq/ticketflow-backend/pkg/outbox"
)

const maxTitleLength = 200

// Aggregate operations are pure: each takes the current state and returns the
// next state together with the events it produced. Nothing here touches the
// database; the service layer persists state and events in one transaction.

type CreateTicketInput struct {
	Title         string
	Description   string
	CustomerEmail string
}

// NewTicket validates the input and produces a ticket in its initial state
// with a ticket.created event.
func NewTicket(input CreateTicketInput, now time.Time) (models.Ticket, []outbox.Event, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Ticket{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if len(title) > maxTitleLength {
		return models.Ticket{}, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" {
		return models.Ticket{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	ticket := models.Ticket{
		ID:            uuid.New(),
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		CustomerEmail: email,
		Status:        enums.TicketStatusNew,
		Priority:      enums.PriorityMedium,
		Category:      enums.CategoryOther,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	events := []outbox.Event{{
		Type: outbox.EventTicketCreated,
		Payload: TicketCreatedPayload{
			TicketID:      ticket.ID,
			Title:         ticket.Title,
			CustomerEmail: ticket.CustomerEmail,
			Status:        ticket.Status,
			Priority:      ticket.Priority,
			Category:      ticket.Category,
			CreatedAt:     ticket.CreatedAt,
		},
		OccurredAt: now,
	}}
	return ticket, events, nil
}

// Classify moves a new ticket to classified with the given priority and
// category. Tickets that already left the new state cannot be reclassified.
func Classify(ticket models.Ticket, priority enums.TicketPriority, category enums.TicketCategory, now time.Time) (models.Ticket, []outbox.Event, error) {
	if ticket.Status != enums.TicketStatusNew {
		return ticket, nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot classify a ticket in status %q", ticket.Status))
	}
	if !priority.IsValid() {
		return ticket, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", priority))
	}
	if !category.IsValid() {
		return ticket, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", category))
	}

	ticket.Status = enums.TicketStatusClassified
	ticket.Priority = priority
	ticket.Category = category
	ticket.UpdatedAt = now

	events := []outbox.Event{{
		Type: outbox.EventTicketClassified,
		Payload: TicketClassifiedPayload{
			TicketID:     ticket.ID,
			Priority:     ticket.Priority,
			Category:     ticket.Category,
			ClassifiedAt: now,
		},
		OccurredAt: now,
	}}
	return ticket, events, nil
}

// Assign hands the ticket to an agent. Closed tickets cannot be assigned.
func Assign(ticket models.Ticket, assignee string, now time.Time) (models.Ticket, []outbox.Event, error) {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return ticket, nil, pkgerrors.New(pkgerrors.CodeValidation, "assignee is required")
	}
	if ticket.Status == enums.TicketStatusClosed {
		return ticket, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot assign a closed ticket")
	}

	ticket.Status = enums.TicketStatusAssigned
	ticket.Assignee = &assignee
	ticket.UpdatedAt = now

	events := []outbox.Event{{
		Type: outbox.EventTicketAssigned,
		Payload: TicketAssignedPayload{
			TicketID:   ticket.ID,
			Assignee:   assignee,
			AssignedAt: now,
		},
		OccurredAt: now,
	}}
	return ticket, events, nil
}
