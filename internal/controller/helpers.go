package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrOrderNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrProductNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrFailedPaymentNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrOriginRejected, http.StatusForbidden, "origin_rejected"},
	{domainErrors.ErrSignatureRequired, http.StatusForbidden, "invalid_signature"},
	{domainErrors.ErrInvalidSignature, http.StatusForbidden, "invalid_signature"},
	{domainErrors.ErrReplayRejected, http.StatusBadRequest, "replay_rejected"},
	{domainErrors.ErrAmountMismatch, http.StatusBadRequest, "amount_mismatch"},
	{domainErrors.ErrDuplicateTransaction, http.StatusConflict, "duplicate_transaction"},
	{domainErrors.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{domainErrors.ErrOptimisticLockFailed, http.StatusConflict, "conflict"},
	{domainErrors.ErrRetryExhausted, http.StatusConflict, "retry_exhausted"},
	{domainErrors.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway_unavailable"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP responses. Callers only ever see a
// status plus a short message; internal detail stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	// A deferred settlement is a 500 on purpose: the gateway redelivers,
	// and the DLQ already holds the durable copy.
	if errors.Is(err, domainErrors.ErrSettlementDeferred) {
		log.Error().Err(err).Msg("settlement deferred")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "settlement deferred, will be retried",
			Code:  "settlement_deferred",
		})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			if m.err == domainErrors.ErrOptimisticLockFailed {
				resp.Error = "concurrent modification, please retry"
			}
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
