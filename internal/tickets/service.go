package tickets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpdeskhq/ticketflow-backend/internal/ai"
	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
	"github.com/helpdeskhq/ticketflow-backend/pkg/enums"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
	"github.com/helpdeskhq/ticketflow-backend/pkg/outbox"
)

type ticketsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	CreateTx(tx *gorm.DB, ticket *models.Ticket) error
	SaveTx(tx *gorm.DB, ticket *models.Ticket) error
	InsertAuditLogTx(tx *gorm.DB, entry *models.AIAuditLog) error
}

type eventWriter interface {
	Append(tx *gorm.DB, events []outbox.Event) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes ticket commands and queries. Every command persists its
// state change and outbox events in a single transaction.
type Service interface {
	Create(ctx context.Context, input CreateTicketInput) (*models.Ticket, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	Assign(ctx context.Context, id uuid.UUID, assignee string) (*models.Ticket, error)
	ClassifyWithAI(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
}

type service struct {
	repo   ticketsRepository
	writer eventWriter
	db     txRunner
	aiCli  ai.Client
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a ticket service. The AI client may be nil; classification
// then reports a dependency failure instead of calling out.
func NewService(repo ticketsRepository, writer eventWriter, db txRunner, aiCli ai.Client, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("tickets repository required")
	}
	if writer == nil {
		return nil, errors.New("outbox writer required")
	}
	if db == nil {
		return nil, errors.New("transaction runner required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{
		repo:   repo,
		writer: writer,
		db:     db,
		aiCli:  aiCli,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateTicketInput) (*models.Ticket, error) {
	ticket, events, err := NewTicket(input, s.now())
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, &ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ticket")
		}
		return s.writer.Append(tx, events)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithTicketID(ctx, ticket.ID.String()), "ticket created")
	return &ticket, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) Assign(ctx context.Context, id uuid.UUID, assignee string) (*models.Ticket, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, events, err := Assign(*current, assignee, s.now())
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.SaveTx(tx, &updated); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save ticket")
		}
		return s.writer.Append(tx, events)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithTicketID(ctx, updated.ID.String()), "ticket assigned")
	return &updated, nil
}

func (s *service) ClassifyWithAI(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	if s.aiCli == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ai classification is not configured")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != enums.TicketStatusNew {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is already classified")
	}

	classification, err := s.aiCli.Classify(ctx, current.Title, current.Description)
	if err != nil {
		return nil, err
	}

	priority, err := enums.ParseTicketPriority(classification.Priority)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ai returned an unknown priority")
	}
	category, err := enums.ParseTicketCategory(classification.Category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ai returned an unknown category")
	}

	now := s.now()
	updated, events, err := Classify(*current, priority, category, now)
	if err != nil {
		return nil, err
	}

	audit := models.AIAuditLog{
		ID:               uuid.New(),
		TicketID:         updated.ID,
		Provider:         "openai",
		Model:            classification.Model,
		PromptVersion:    ai.PromptVersion,
		RequestJSON:      classification.RequestJSON,
		ResponseJSON:     classification.ResponseJSON,
		PromptTokens:     classification.PromptTokens,
		CompletionTokens: classification.CompletionTokens,
		CreatedAt:        now,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.SaveTx(tx, &updated); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save ticket")
		}
		if err := s.repo.InsertAuditLogTx(tx, &audit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert ai audit log")
		}
		return s.writer.Append(tx, events)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"ticket_id": updated.ID.String(),
		"priority":  updated.Priority,
		"category":  updated.Category,
	})
	s.logg.Info(ctx, "ticket classified")
	return &updated, nil
}
