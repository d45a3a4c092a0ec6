package tickets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find ticket")
	}
	return &ticket, nil
}

// CreateTx inserts the ticket inside the caller's transaction so the row and
// its outbox events commit together.
func (r *Repository) CreateTx(tx *gorm.DB, ticket *models.Ticket) error {
	return tx.Create(ticket).Error
}

// SaveTx persists every column of an already-loaded ticket inside the
// caller's transaction.
func (r *Repository) SaveTx(tx *gorm.DB, ticket *models.Ticket) error {
	return tx.Save(ticket).Error
}

// InsertAuditLogTx records one AI classification exchange inside the caller's
// transaction.
func (r *Repository) InsertAuditLogTx(tx *gorm.DB, entry *models.AIAuditLog) error {
	return tx.Create(entry).Error
}
