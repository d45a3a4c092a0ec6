package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/helpdeskhq/ticketflow-backend/pkg/config"
)

// PubSubSink publishes messages to a single Google Cloud Pub/Sub topic. Every
// publish waits for the server acknowledgement so the worker only retires an
// outbox row after the broker has accepted it.
type PubSubSink struct {
	client         *gcppubsub.Client
	publisher      *gcppubsub.Publisher
	publishTimeout time.Duration
}

func NewPubSubSink(ctx context.Context, cfg config.PubSubConfig) (*PubSubSink, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("pubsub topic is required")
	}

	client, err := gcppubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PubSubSink{
		client:         client,
		publisher:      client.Publisher(topicResourceName(cfg.ProjectID, cfg.Topic)),
		publishTimeout: timeout,
	}, nil
}

func (s *PubSubSink) Publish(ctx context.Context, msgType string, payload []byte) error {
	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	result := s.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type": msgType,
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish %s: %w", msgType, err)
	}
	return nil
}

// Close releases the underlying Pub/Sub client resources.
func (s *PubSubSink) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func topicResourceName(projectID, topic string) string {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "projects/") && strings.Contains(t, "/topics/") {
		return t
	}
	return fmt.Sprintf("projects/%s/topics/%s", strings.TrimSpace(projectID), t)
}
