package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helpdeskhq/ticketflow-backend/internal/tickets"
	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
	"github.com/helpdeskhq/ticketflow-backend/pkg/enums"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
)

type fakeTicketService struct {
	createInput tickets.CreateTicketInput
	ticket      *models.Ticket
	err         error
}

func (f *fakeTicketService) Create(_ context.Context, input tickets.CreateTicketInput) (*models.Ticket, error) {
	f.createInput = input
	return f.ticket, f.err
}

func (f *fakeTicketService) Get(context.Context, uuid.UUID) (*models.Ticket, error) {
	return f.ticket, f.err
}

func (f *fakeTicketService) Assign(context.Context, uuid.UUID, string) (*models.Ticket, error) {
	return f.ticket, f.err
}

func (f *fakeTicketService) ClassifyWithAI(context.Context, uuid.UUID) (*models.Ticket, error) {
	return f.ticket, f.err
}

func sampleTicket() *models.Ticket {
	return &models.Ticket{
		ID:            uuid.New(),
		Title:         "Cannot log in",
		Description:   "Password reset email never arrives.",
		CustomerEmail: "user@example.com",
		Status:        enums.TicketStatusNew,
		Priority:      enums.PriorityMedium,
		Category:      enums.CategoryOther,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}

func ticketRouter(svc tickets.Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/tickets", TicketCreate(svc, nil))
	r.Get("/api/v1/tickets/{id}", TicketGet(svc, nil))
	r.Post("/api/v1/tickets/{id}/assign", TicketAssign(svc, nil))
	r.Post("/api/v1/tickets/{id}/classify", TicketClassify(svc, nil))
	return r
}

func TestTicketCreateReturnsCreated(t *testing.T) {
	svc := &fakeTicketService{ticket: sampleTicket()}
	router := ticketRouter(svc)

	body := `{"title":"Cannot log in","description":"details","customer_email":"user@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.createInput.Title != "Cannot log in" {
		t.Fatalf("unexpected input: %+v", svc.createInput)
	}

	var envelope struct {
		Data ticketResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != svc.ticket.ID || envelope.Data.Status != "new" {
		t.Fatalf("unexpected response: %+v", envelope.Data)
	}
}

func TestTicketCreateRejectsInvalidBody(t *testing.T) {
	svc := &fakeTicketService{ticket: sampleTicket()}
	router := ticketRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", strings.NewReader(`{"title":""}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestTicketGetInvalidID(t *testing.T) {
	svc := &fakeTicketService{ticket: sampleTicket()}
	router := ticketRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestTicketGetNotFound(t *testing.T) {
	svc := &fakeTicketService{err: pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")}
	router := ticketRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/"+uuid.NewString(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestTicketAssign(t *testing.T) {
	ticket := sampleTicket()
	assignee := "sam"
	ticket.Status = enums.TicketStatusAssigned
	ticket.Assignee = &assignee
	svc := &fakeTicketService{ticket: ticket}
	router := ticketRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/"+ticket.ID.String()+"/assign", strings.NewReader(`{"assignee":"sam"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"assignee":"sam"`) {
		t.Fatalf("expected assignee in response, got %s", rr.Body.String())
	}
}

func TestTicketClassifyStateConflict(t *testing.T) {
	svc := &fakeTicketService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is already classified")}
	router := ticketRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/"+uuid.NewString()+"/classify", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}
