package sink

import (
	"context"
	"errors"

	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
)

// LogSink writes each message to the structured log. It is the default sink
// for local development and for environments without a broker.
type LogSink struct {
	logg *logger.Logger
}

func NewLogSink(logg *logger.Logger) (*LogSink, error) {
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &LogSink{logg: logg}, nil
}

func (s *LogSink) Publish(ctx context.Context, msgType string, payload []byte) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_type": msgType,
		"payload":    string(payload),
	})
	s.logg.Info(ctx, "outbox message published")
	return nil
}
