package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/helpdeskhq/ticketflow-backend/pkg/config"
	"github.com/helpdeskhq/ticketflow-backend/pkg/db/models"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
	"github.com/helpdeskhq/ticketflow-backend/pkg/metrics"
	"github.com/helpdeskhq/ticketflow-backend/pkg/outbox"
	"github.com/helpdeskhq/ticketflow-backend/pkg/sink"
)

const (
	defaultBatchSize    = 20
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 10
	defaultLeaseTimeout = 5 * time.Minute
	defaultBackoffBase  = time.Second
	defaultBackoffMax   = 300 * time.Second
)

type outboxRepository interface {
	FetchEligible(now time.Time, limit, maxAttempts int, lease time.Duration) ([]models.OutboxMessage, error)
	Claim(id uuid.UUID, now time.Time, lease time.Duration) (bool, error)
	MarkPublished(id uuid.UUID, now time.Time) error
	MarkFailed(id uuid.UUID, cause error, nextAttemptAt time.Time) error
}

type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Repo    outboxRepository
	Sink    sink.Sink
	Metrics *metrics.OutboxMetrics
}

// Service is the claim-based publisher worker. Any number of instances can
// run concurrently; the conditional claim in the repository guarantees each
// message is delivered by at most one instance per lease window.
type Service struct {
	logg         *logger.Logger
	repo         outboxRepository
	sink         sink.Sink
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	lease        time.Duration
	backoffBase  time.Duration
	backoffMax   time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repo == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Sink == nil {
		return nil, errors.New("sink is required")
	}

	cfg := params.Config.Outbox
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	lease := cfg.LeaseTimeout
	if lease <= 0 {
		lease = defaultLeaseTimeout
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = defaultBackoffBase
	}
	backoffMax := cfg.BackoffMax
	if backoffMax <= 0 {
		backoffMax = defaultBackoffMax
	}

	return &Service{
		logg:         params.Logger,
		repo:         params.Repo,
		sink:         params.Sink,
		metrics:      params.Metrics,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: poll,
		lease:        lease,
		backoffBase:  backoffBase,
		backoffMax:   backoffMax,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run polls until the context is canceled. A failing tick is logged and
// retried after the poll interval; the loop itself never terminates on a
// store or sink error.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		if err := s.tick(ctx); err != nil {
			s.logg.Error(ctx, "outbox tick failed", err)
		}

		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return err
		}
	}
}

// tick fetches one batch of eligible rows and pushes each one through
// claim, publish, and terminal-state transition.
func (s *Service) tick(ctx context.Context) error {
	rows, err := s.repo.FetchEligible(s.now(), s.batchSize, s.maxAttempts, s.lease)
	if err != nil {
		return err
	}

	for _, row := range rows {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		s.processRow(ctx, row)
	}
	return nil
}

func (s *Service) processRow(ctx context.Context, row models.OutboxMessage) {
	rowCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":  row.ID.String(),
		"event_type": row.Type,
		"attempts":   row.Attempts,
	})

	claimed, err := s.repo.Claim(row.ID, s.now(), s.lease)
	if err != nil {
		s.logg.Error(rowCtx, "claim failed", err)
		return
	}
	if !claimed {
		// Another instance won the race between fetch and claim.
		return
	}

	start := s.now()
	publishErr := s.sink.Publish(ctx, row.Type, row.Payload)
	s.metrics.ObservePublishDuration(row.Type, s.now().Sub(start))

	if publishErr == nil {
		if err := s.repo.MarkPublished(row.ID, s.now()); err != nil {
			// The message was delivered but the row is still claimed.
			// The lease expires and a retry republishes; consumers must
			// tolerate the duplicate, which at-least-once already demands.
			s.logg.Error(rowCtx, "mark published failed", err)
			return
		}
		s.metrics.IncPublished(row.Type)
		s.logg.Info(rowCtx, "outbox message published")
		return
	}

	attempts := row.Attempts + 1
	nextAttemptAt := s.now().Add(outbox.Backoff(attempts, s.backoffBase, s.backoffMax))
	if err := s.repo.MarkFailed(row.ID, publishErr, nextAttemptAt); err != nil {
		s.logg.Error(rowCtx, "mark failed failed", err)
		return
	}
	s.metrics.IncFailed(row.Type)

	if attempts >= s.maxAttempts {
		s.metrics.IncAbandoned(row.Type)
		abandonCtx := s.logg.WithField(rowCtx, "error", publishErr.Error())
		s.logg.Warn(abandonCtx, "outbox message abandoned after exhausting attempts")
		return
	}

	failCtx := s.logg.WithFields(rowCtx, map[string]any{
		"error":           publishErr.Error(),
		"next_attempt_at": nextAttemptAt.Format(time.RFC3339),
	})
	s.logg.Warn(failCtx, "outbox publish failed")
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
