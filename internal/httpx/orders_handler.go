package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront-sync/internal/orders"
)

type OrderRunner interface {
	ProcessPending(ctx context.Context) (orders.ProcessSummary, error)
	TrackSupplierOrders(ctx context.Context) error
}

type OrdersHandler struct {
	Runner  OrderRunner
	Creator orders.SupplierOrderCreator
	Store   orders.Store
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/api/cron/process-orders", h.cronProcess)
	r.Post("/api/orders/process", h.processOne)
}

func (h *OrdersHandler) cronProcess(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Runner.ProcessPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	trackErrs := 0
	if err := h.Runner.TrackSupplierOrders(r.Context()); err != nil {
		trackErrs = 1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": map[string]any{
			"timestamp":       time.Now().UTC(),
			"ordersProcessed": sum.Processed,
			"errors":          sum.Errors + trackErrs,
			"totalPending":    sum.TotalPending,
		},
	})
}

type processOrderReq struct {
	OrderID string `json:"orderId"`
}

// processOne is the manual trigger: it forces payment to paid and places the
// supplier orders in one step.
func (h *OrdersHandler) processOne(w http.ResponseWriter, r *http.Request) {
	var req processOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "orderId is required"})
		return
	}

	ok, err := h.Creator.CreateSupplierOrder(r.Context(), req.OrderID)
	if !ok {
		if err == nil {
			err = errors.New("supplier order placement incomplete")
		}
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeFailure(w, err)
			return
		}
		writeError(w, err)
		return
	}
	if err := h.Store.MarkProcessing(r.Context(), req.OrderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
