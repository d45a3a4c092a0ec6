package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/helpdeskhq/ticketflow-backend/api/responses"
	"github.com/helpdeskhq/ticketflow-backend/pkg/config"
	pkgerrors "github.com/helpdeskhq/ticketflow-backend/pkg/errors"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
)

// Pinger is any dependency that can report its own availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TicketFlow-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the dependencies the API cannot serve without. Nil
// pingers (an unconfigured Redis, for example) are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-TicketFlow-Env", cfg.App.Env)

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s unavailable", name)))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
