package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/helpdeskhq/ticketflow-backend/api/responses"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
)

const idempotencyKeyHeader = "Idempotency-Key"

type commandGuard interface {
	TryMark(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Idempotency enforces exactly-once semantics for state-changing commands.
// Clients send an Idempotency-Key header; a replay of the same key on the
// same route is rejected with a conflict rather than re-executed. The mark
// is released when the handler fails so the client can retry a failed
// command with the same key.
func Idempotency(guard commandGuard, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if guard == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			if key == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			id := r.Method + ":" + r.URL.Path + ":" + key
			first, err := guard.TryMark(ctx, id)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !first {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used"))
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				if releaseErr := guard.Release(ctx, id); releaseErr != nil && logg != nil {
					logg.Error(ctx, "release idempotency mark", releaseErr)
				}
			}
		})
	}
}
