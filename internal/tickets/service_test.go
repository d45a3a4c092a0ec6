package tickets

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/helpdeskhq/ticketflow-backend/internal/ai"
	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
	"github.com/helpdeskhq/ticketflow-backend/pkg/enums"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
	"github.com/helpdeskhq/ticketflow-backend/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeAI struct {
	result *ai.Classification
	err    error
	calls  int
}

func (f *fakeAI) Classify(_ context.Context, _, _ string) (*ai.Classification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:tickets_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Ticket{}, &models.OutboxMessage{}, &models.AIAuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, aiCli ai.Client) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), outbox.NewWriter(), testTxRunner{db: db}, aiCli, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestServiceCreatePersistsTicketAndEvent(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestService(t, db, nil)

	ticket, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var stored models.Ticket
	if err := db.First(&stored, "id = ?", ticket.ID).Error; err != nil {
		t.Fatalf("load ticket: %v", err)
	}
	if stored.Status != enums.TicketStatusNew {
		t.Fatalf("unexpected status %q", stored.Status)
	}

	var msg models.OutboxMessage
	if err := db.First(&msg).Error; err != nil {
		t.Fatalf("load outbox row: %v", err)
	}
	if msg.Type != outbox.EventTicketCreated {
		t.Fatalf("unexpected event type %q", msg.Type)
	}
	var payload TicketCreatedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.TicketID != ticket.ID {
		t.Fatalf("payload ticket id %s does not match %s", payload.TicketID, ticket.ID)
	}
}

func TestServiceCreateValidationWritesNothing(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestService(t, db, nil)

	input := validInput()
	input.Title = ""
	if _, err := svc.Create(context.Background(), input); err == nil {
		t.Fatal("expected validation error")
	}
	if countRows(t, db, &models.Ticket{}) != 0 || countRows(t, db, &models.OutboxMessage{}) != 0 {
		t.Fatal("rejected command must not persist anything")
	}
}

func TestServiceGetUnknownTicket(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestService(t, db, nil)

	_, err := svc.Get(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceClassifyWithAI(t *testing.T) {
	db := newServiceTestDB(t)
	promptTokens, completionTokens := 42, 7
	aiCli := &fakeAI{result: &ai.Classification{
		Priority:         "High",
		Category:         "technical",
		Model:            "gpt-4o-mini",
		RequestJSON:      []byte(`{"model":"gpt-4o-mini"}`),
		ResponseJSON:     []byte(`{"choices":[]}`),
		PromptTokens:     &promptTokens,
		CompletionTokens: &completionTokens,
	}}
	svc := newTestService(t, db, aiCli)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	classified, err := svc.ClassifyWithAI(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if classified.Status != enums.TicketStatusClassified || classified.Priority != enums.PriorityHigh || classified.Category != enums.CategoryTechnical {
		t.Fatalf("unexpected classified state: %+v", classified)
	}

	var audit models.AIAuditLog
	if err := db.First(&audit, "ticket_id = ?", created.ID).Error; err != nil {
		t.Fatalf("load audit log: %v", err)
	}
	if audit.PromptVersion != ai.PromptVersion || audit.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected audit row: %+v", audit)
	}

	var events []models.OutboxMessage
	if err := db.Order("occurred_at ASC").Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 2 || events[1].Type != outbox.EventTicketClassified {
		t.Fatalf("expected created + classified events, got %d", len(events))
	}
}

func TestServiceClassifyWithAIRejectsClassifiedTicket(t *testing.T) {
	db := newServiceTestDB(t)
	aiCli := &fakeAI{result: &ai.Classification{Priority: "low", Category: "billing"}}
	svc := newTestService(t, db, aiCli)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ClassifyWithAI(context.Background(), created.ID); err != nil {
		t.Fatalf("first classify: %v", err)
	}

	aiCli.calls = 0
	_, err = svc.ClassifyWithAI(context.Background(), created.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	if aiCli.calls != 0 {
		t.Fatal("state check must run before the ai call")
	}
}

func TestServiceClassifyWithAIFailureWritesNothing(t *testing.T) {
	db := newServiceTestDB(t)
	aiCli := &fakeAI{err: pkgerrors.New(pkgerrors.CodeDependency, "model unavailable")}
	svc := newTestService(t, db, aiCli)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.ClassifyWithAI(context.Background(), created.ID)
	requireCode(t, err, pkgerrors.CodeDependency)

	if countRows(t, db, &models.AIAuditLog{}) != 0 {
		t.Fatal("failed classification must not write an audit row")
	}
	if countRows(t, db, &models.OutboxMessage{}) != 1 {
		t.Fatal("failed classification must not append events")
	}
}

func TestServiceAssign(t *testing.T) {
	db := newServiceTestDB(t)
	svc := newTestService(t, db, nil)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	assigned, err := svc.Assign(context.Background(), created.ID, "sam")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Assignee == nil || *assigned.Assignee != "sam" {
		t.Fatalf("unexpected assignee: %+v", assigned.Assignee)
	}

	var events []models.OutboxMessage
	if err := db.Find(&events, "type = ?", outbox.EventTicketAssigned).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one ticket.assigned event, got %d", len(events))
	}
}
