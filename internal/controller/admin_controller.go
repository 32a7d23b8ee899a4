package controller

import (
	"net/http"

	sweep "github.com/cassiomorais/checkout/internal/application/dlq"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AdminController handles operator endpoints: fulfillment updates and DLQ
// inspection / re-drive.
type AdminController struct {
	orderRepo order.Repository
	sweeper   *sweep.Sweeper
}

// NewAdminController creates a new AdminController.
func NewAdminController(orderRepo order.Repository, sweeper *sweep.Sweeper) *AdminController {
	return &AdminController{
		orderRepo: orderRepo,
		sweeper:   sweeper,
	}
}

// UpdateDeliveryStatus handles PUT /api/v1/admin/orders/{id}/delivery-status
func (h *AdminController) UpdateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order id", Code: "invalid_id"})
		return
	}

	var req UpdateDeliveryStatusRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.orderRepo.UpdateDeliveryStatus(r.Context(), id, order.DeliveryStatus(req.DeliveryStatus)); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.orderRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromOrder(o))
}

// DLQStats handles GET /api/v1/admin/dlq/stats
func (h *AdminController) DLQStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sweeper.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// RetryFailedPayment handles POST /api/v1/admin/dlq/{transaction_uuid}/retry
//
// The optional force=true query parameter re-arms records that have already
// exhausted their automatic retries.
func (h *AdminController) RetryFailedPayment(w http.ResponseWriter, r *http.Request) {
	txnUUID := chi.URLParam(r, "transaction_uuid")
	force := r.URL.Query().Get("force") == "true"

	f, err := h.sweeper.ManualRetry(r.Context(), txnUUID, force)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromFailedPayment(f))
}
