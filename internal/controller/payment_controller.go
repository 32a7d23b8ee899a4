package controller

import (
	"net"
	"net/http"

	"github.com/cassiomorais/checkout/internal/application/reconcile"
)

// PaymentController handles gateway callbacks and client-initiated status
// checks.
type PaymentController struct {
	reconciler  *reconcile.Reconciler
	statusCheck *reconcile.StatusCheckUseCase
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(reconciler *reconcile.Reconciler, statusCheck *reconcile.StatusCheckUseCase) *PaymentController {
	return &PaymentController{
		reconciler:  reconciler,
		statusCheck: statusCheck,
	}
}

// Webhook handles POST /api/v1/payments/callback
func (h *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.reconciler.Execute(r.Context(), reconcile.Request{
		Payload: reconcile.WebhookPayload{
			TransactionUUID: req.TransactionUUID,
			TransactionCode: req.TransactionCode,
			Status:          req.Status,
			TotalAmount:     req.TotalAmount,
			Signature:       req.Signature,
			Timestamp:       req.Timestamp,
		},
		RemoteIP:        remoteIP(r),
		HeaderTimestamp: r.Header.Get("X-Gateway-Timestamp"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &ReconcileResponse{
		Result:          string(res.Outcome),
		TransactionUUID: res.Order.TransactionUUID,
		OrderStatus:     string(res.Order.Status),
	})
}

// StatusCheck handles POST /api/v1/payments/status-check
func (h *PaymentController) StatusCheck(w http.ResponseWriter, r *http.Request) {
	var req StatusCheckRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.statusCheck.Execute(r.Context(), req.TransactionUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &ReconcileResponse{
		Result:          string(res.Outcome),
		TransactionUUID: res.Order.TransactionUUID,
		OrderStatus:     string(res.Order.Status),
	})
}

// remoteIP extracts the caller address after the RealIP middleware has
// resolved proxy headers. RemoteAddr still carries a port on direct
// connections.
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
