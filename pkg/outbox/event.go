package outbox

import "time"

// Event type names are a wire contract with downstream consumers and must not
// change across releases.
const (
	EventTicketCreated    = "ticket.created"
	EventTicketClassified = "ticket.classified"
	EventTicketAssigned   = "ticket.assigned"
	EventWebhookReceived  = "webhook.received"
)

// Event is one domain event produced by a unit of work. Aggregate operations
// return their events explicitly; nothing buffers events on the aggregate
// itself.
type Event struct {
	Type       string
	Payload    any
	OccurredAt time.Time
}
