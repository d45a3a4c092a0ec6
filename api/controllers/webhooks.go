package controllers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helpdeskhq/ticketflow-backend/api/responses"
	"github.com/helpdeskhq/ticketflow-backend/internal/webhooks"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
)

// Header names are a contract with external senders and must remain stable.
const (
	webhookEventIDHeader   = "X-Webhook-Event-Id"
	webhookSignatureHeader = "X-Webhook-Signature"
	webhookTimestampHeader = "X-Webhook-Timestamp"
)

type webhookReceiveResponse struct {
	Processed bool `json:"processed"`
}

// WebhookReceive handles POST /api/v1/webhooks/{provider}. The response flag
// distinguishes a first delivery (true) from a deduplicated replay (false);
// both are successful from the sender's point of view.
func WebhookReceive(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		provider := strings.TrimSpace(chi.URLParam(r, "provider"))
		if provider == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "provider is required"))
			return
		}

		eventID := strings.TrimSpace(r.Header.Get(webhookEventIDHeader))
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, webhookEventIDHeader+" header required"))
			return
		}

		timestamp, err := time.Parse(time.RFC3339, r.Header.Get(webhookTimestampHeader))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, webhookTimestampHeader+" header must be RFC3339"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		processed, err := svc.Receive(ctx, webhooks.ReceiveInput{
			Provider:  provider,
			EventID:   eventID,
			Payload:   payload,
			Signature: r.Header.Get(webhookSignatureHeader),
			Timestamp: timestamp,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, webhookReceiveResponse{Processed: processed})
	}
}
