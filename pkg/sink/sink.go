package sink

import "context"

// Sink is the delivery target for published outbox messages. The concrete
// sink is chosen once when the process is composed; the publisher worker
// never inspects which kind it was given.
type Sink interface {
	Publish(ctx context.Context, msgType string, payload []byte) error
}
