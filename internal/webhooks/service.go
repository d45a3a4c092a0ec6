package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/helpdeskhq/ticketflow-backend/pkg/db"
	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
	"github.com/helpdeskhq/ticketflow-backend/pkg/metrics"
	"github.com/helpdeskhq/ticketflow-backend/pkg/outbox"
)

type verifier interface {
	Verify(ctx context.Context, provider string, payload []byte, signature string, claimedAt time.Time) bool
}

type deliveryGuard interface {
	TryMark(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

type receiptsRepository interface {
	InsertReceiptTx(tx *gorm.DB, receipt *models.WebhookReceipt) error
}

type eventWriter interface {
	Append(tx *gorm.DB, events []outbox.Event) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReceiveInput carries one inbound webhook delivery.
type ReceiveInput struct {
	Provider  string
	EventID   string
	Payload   []byte
	Signature string
	Timestamp time.Time
}

// ReceivedPayload is the webhook.received event body.
type ReceivedPayload struct {
	Provider    string    `json:"provider"`
	EventID     string    `json:"event_id"`
	PayloadHash string    `json:"payload_hash"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Service ingests provider webhooks: verify the signature, deduplicate by
// (provider, event_id), then persist a receipt and a webhook.received outbox
// row in one transaction.
type Service interface {
	Receive(ctx context.Context, input ReceiveInput) (bool, error)
}

type service struct {
	verifier verifier
	guard    deliveryGuard
	repo     receiptsRepository
	writer   eventWriter
	db       txRunner
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(v verifier, guard deliveryGuard, repo receiptsRepository, writer eventWriter, db txRunner, m *metrics.WebhookMetrics, logg *logger.Logger) (Service, error) {
	if v == nil {
		return nil, errors.New("verifier required")
	}
	if guard == nil {
		return nil, errors.New("idempotency guard required")
	}
	if repo == nil {
		return nil, errors.New("receipts repository required")
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
		verifier: v,
		guard:    guard,
		repo:     repo,
		writer:   writer,
		db:       db,
		metrics:  m,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Receive returns (true, nil) when the delivery was processed for the first
// time and (false, nil) when it is a duplicate. The guard mark is taken
// before the transaction commits; a crash in between leaves the mark without
// a receipt, and the delivery is then only recovered by the mark's TTL
// expiring or by the sender retrying after that window.
func (s *service) Receive(ctx context.Context, input ReceiveInput) (bool, error) {
	ctx = s.logg.WithProvider(ctx, input.Provider)

	if input.EventID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if !s.verifier.Verify(ctx, input.Provider, input.Payload, input.Signature, input.Timestamp) {
		s.metrics.IncRejected(input.Provider)
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature verification failed")
	}

	guardID := input.Provider + ":" + input.EventID
	first, err := s.guard.TryMark(ctx, guardID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
	}
	if !first {
		s.metrics.IncDuplicate(input.Provider)
		s.logg.Info(s.logg.WithField(ctx, "event_id", input.EventID), "duplicate webhook skipped")
		return false, nil
	}

	now := s.now()
	hash := sha256.Sum256(input.Payload)
	payloadHash := hex.EncodeToString(hash[:])

	receipt := models.WebhookReceipt{
		ID:          uuid.New(),
		Provider:    input.Provider,
		EventID:     input.EventID,
		PayloadHash: payloadHash,
		ReceivedAt:  now,
		ProcessedAt: &now,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.InsertReceiptTx(tx, &receipt); err != nil {
			return err
		}
		return s.writer.Append(tx, []outbox.Event{{
			Type: outbox.EventWebhookReceived,
			Payload: ReceivedPayload{
				Provider:    input.Provider,
				EventID:     input.EventID,
				PayloadHash: payloadHash,
				ReceivedAt:  now,
			},
			OccurredAt: now,
		}})
	})
	if err != nil {
		// The database constraint is the final arbiter: a guard that lost
		// its mark (TTL expiry, flush) still cannot double-process.
		if pkgdb.IsUniqueViolation(err, UniqueReceiptConstraint) {
			s.metrics.IncDuplicate(input.Provider)
			return false, nil
		}
		if releaseErr := s.guard.Release(ctx, guardID); releaseErr != nil {
			s.logg.Error(ctx, "release webhook idempotency mark", releaseErr)
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist webhook receipt")
	}

	s.metrics.IncReceived(input.Provider)
	s.logg.Info(s.logg.WithField(ctx, "event_id", input.EventID), "webhook processed")
	return true, nil
}
