package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rytkhs/event-pay-sub006/internal/contracts"
	"github.com/rytkhs/event-pay-sub006/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
		{domain.ErrPayoutNotFound, http.StatusNotFound, "payout_not_found"},
		{domain.ErrPayoutAlreadyExists, http.StatusConflict, "payout_already_exists"},
		{domain.ErrEventNotEligible, http.StatusUnprocessableEntity, "event_not_eligible"},
		{domain.ErrAccountNotReady, http.StatusUnprocessableEntity, "account_not_ready"},
		{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
		{domain.ErrInvalidStatusTransition, http.StatusConflict, "invalid_status_transition"},
		{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{domain.ErrConfigMissing, http.StatusInternalServerError, "config_missing"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		// Wrapped errors must map the same as their sentinel.
		{fmt.Errorf("check: %w", domain.ErrEventNotEligible), http.StatusUnprocessableEntity, "event_not_eligible"},
	}
	for _, tc := range cases {
		status, code := mapDomainError(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("mapDomainError(%v) = %d %q, want %d %q", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestWriteDomainErrorIncludesEligibilityDetails(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeDomainError(rec, &domain.EligibilityError{
		Err:     domain.ErrEventNotEligible,
		Reason:  "waiting_period",
		Details: map[string]any{"days_remaining": 2},
	}, "req-1")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var body contracts.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "event_not_eligible" {
		t.Errorf("code = %q, want event_not_eligible", body.Error.Code)
	}
	if body.Error.RequestID != "req-1" {
		t.Errorf("request id = %q, want req-1", body.Error.RequestID)
	}
	details, ok := body.Error.Details.(map[string]any)
	if !ok || details["reason"] != "waiting_period" {
		t.Errorf("details = %v, must carry the rule that failed", body.Error.Details)
	}
}
