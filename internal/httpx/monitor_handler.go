package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront-sync/internal/linkcheck"
)

type LinkChecker interface {
	Run(ctx context.Context) (linkcheck.Report, error)
	Status(ctx context.Context) (*linkcheck.Report, error)
}

type MonitorHandler struct {
	Checker LinkChecker
}

func (h *MonitorHandler) Register(r *chi.Mux) {
	r.Get("/api/monitor/links", h.status)
	r.Post("/api/monitor/links", h.runCheck)
}

func (h *MonitorHandler) status(w http.ResponseWriter, r *http.Request) {
	report, err := h.Checker.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if report == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": nil, "message": "no check has run yet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": report})
}

func (h *MonitorHandler) runCheck(w http.ResponseWriter, r *http.Request) {
	report, err := h.Checker.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"report":    report,
		"timestamp": time.Now().UTC(),
	})
}
