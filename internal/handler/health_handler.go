package handler

import (
	"context"
	"net/http"
	"time"

	"portfolio-cms/pkg/apierror"
)

type pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db pinger
}

func NewHealthHandler(db pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready fails while Postgres is unreachable so load balancers stop routing here.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		writeError(w, apierror.Unavailable("database unreachable", err))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"database": "ok"}, nil)
}
