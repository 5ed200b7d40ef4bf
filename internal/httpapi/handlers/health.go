package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vanin2004/orbis-file-storage/internal/unitofwork"
)

// HealthCheckTimeout bounds how long the readiness probe waits on the
// metadata store before reporting unhealthy.
const HealthCheckTimeout = 5 * time.Second

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	metaStore unitofwork.MetaOpener
}

// NewHealthHandler builds a HealthHandler bound to a metastore opener
// used to probe database connectivity on readiness checks.
func NewHealthHandler(metaStore unitofwork.MetaOpener) *HealthHandler {
	return &HealthHandler{metaStore: metaStore}
}

// Liveness handles GET /health: always succeeds if the process answers.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, map[string]string{"status": "ok", "service": "orbis"})
}

// Readiness handles GET /health/ready: opens and rolls back a metadata
// session to confirm the database is reachable.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	session, err := h.metaStore.NewSession(ctx)
	if err != nil {
		ServiceUnavailable(w, "metadata store unreachable")
		return
	}
	session.Rollback(ctx)

	WriteJSONOK(w, map[string]string{"status": "ready"})
}
