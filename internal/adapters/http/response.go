package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rytkhs/event-pay-sub006/internal/contracts"
	"github.com/rytkhs/event-pay-sub006/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

func writeDomainError(w http.ResponseWriter, err error, requestID string) {
	status, code := mapDomainError(err)
	payload := contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   err.Error(),
			RequestID: requestID,
		},
	}
	var eligErr *domain.EligibilityError
	if errors.As(err, &eligErr) {
		payload.Error.Details = map[string]any{
			"reason":  eligErr.Reason,
			"details": eligErr.Details,
		}
	}
	writeJSON(w, status, payload)
}

func mapDomainError(err error) (status int, code string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrEventNotFound):
		return http.StatusNotFound, "event_not_found"
	case errors.Is(err, domain.ErrPayoutNotFound):
		return http.StatusNotFound, "payout_not_found"
	case errors.Is(err, domain.ErrPayoutAlreadyExists):
		return http.StatusConflict, "payout_already_exists"
	case errors.Is(err, domain.ErrEventNotEligible):
		return http.StatusUnprocessableEntity, "event_not_eligible"
	case errors.Is(err, domain.ErrAccountNotReady):
		return http.StatusUnprocessableEntity, "account_not_ready"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return http.StatusConflict, "invalid_status_transition"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrConfigMissing):
		return http.StatusInternalServerError, "config_missing"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
