package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront-sync/internal/catalog"
)

type Syncer interface {
	SyncAll(ctx context.Context, trigger string) (*catalog.Run, error)
}

type SyncHandler struct {
	Manager Syncer
	Runs    catalog.RunStore
}

func (h *SyncHandler) Register(r *chi.Mux) {
	r.Get("/api/cron/sync-products", h.cronSync)
	r.Post("/api/sync/suppliers", h.manualSync)
	r.Get("/api/sync/suppliers", h.listRuns)
}

type syncSummary struct {
	Timestamp             time.Time `json:"timestamp"`
	TotalSuppliers        int       `json:"totalSuppliers"`
	SuccessfulSyncs       int       `json:"successfulSyncs"`
	TotalProductsImported int       `json:"totalProductsImported"`
	TotalProductsUpdated  int       `json:"totalProductsUpdated"`
	TotalErrors           int       `json:"totalErrors"`
}

func summarize(run *catalog.Run) syncSummary {
	return syncSummary{
		Timestamp:             run.FinishedAt,
		TotalSuppliers:        run.Suppliers(),
		SuccessfulSyncs:       run.SuccessfulSyncs(),
		TotalProductsImported: run.Imported,
		TotalProductsUpdated:  run.Updated,
		TotalErrors:           run.Errors,
	}
}

func (h *SyncHandler) cronSync(w http.ResponseWriter, r *http.Request) {
	run, err := h.Manager.SyncAll(r.Context(), catalog.TriggerCron)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "supplier sync completed",
		"summary": summarize(run),
	})
}

func (h *SyncHandler) manualSync(w http.ResponseWriter, r *http.Request) {
	run, err := h.Manager.SyncAll(r.Context(), catalog.TriggerManual)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summarize(run),
		"details": run.Outcomes,
	})
}

func (h *SyncHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Runs.LastRuns(r.Context(), 10)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "runs": runs})
}
