package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helpdeskhq/ticketflow-backend/api/responses"
	"github.com/helpdeskhq/ticketflow-backend/api/validators"
	"github.com/helpdeskhq/ticketflow-backend/internal/tickets"
	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
)

type ticketCreateRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

type ticketAssignRequest struct {
	Assignee string `json:"assignee" validate:"required"`
}

type ticketResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CustomerEmail string    `json:"customer_email"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	Category      string    `json:"category"`
	Assignee      *string   `json:"assignee,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toTicketResponse(t *models.Ticket) ticketResponse {
	return ticketResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		CustomerEmail: t.CustomerEmail,
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		Category:      string(t.Category),
		Assignee:      t.Assignee,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// TicketCreate handles POST /api/v1/tickets.
func TicketCreate(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ticket service unavailable"))
			return
		}

		var req ticketCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ticket, err := svc.Create(ctx, tickets.CreateTicketInput{
			Title:         req.Title,
			Description:   req.Description,
			CustomerEmail: req.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toTicketResponse(ticket))
	}
}

// TicketGet handles GET /api/v1/tickets/{id}.
func TicketGet(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ticket service unavailable"))
			return
		}

		id, err := ticketID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ticket, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTicketResponse(ticket))
	}
}

// TicketAssign handles POST /api/v1/tickets/{id}/assign.
func TicketAssign(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ticket service unavailable"))
			return
		}

		id, err := ticketID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req ticketAssignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ticket, err := svc.Assign(ctx, id, req.Assignee)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTicketResponse(ticket))
	}
}

// TicketClassify handles POST /api/v1/tickets/{id}/classify.
func TicketClassify(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ticket service unavailable"))
			return
		}

		id, err := ticketID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ticket, err := svc.ClassifyWithAI(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTicketResponse(ticket))
	}
}

func ticketID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ticket id")
	}
	return id, nil
}
