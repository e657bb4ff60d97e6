package domain

import "testing"

func TestPayoutStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to PayoutStatus
		allowed  bool
	}{
		{PayoutStatusPending, PayoutStatusProcessing, true},
		{PayoutStatusPending, PayoutStatusFailed, true},
		{PayoutStatusPending, PayoutStatusCompleted, false},
		// The transfer is dispatched while the record is still pending, so
		// the parked state must be reachable from there as well.
		{PayoutStatusPending, PayoutStatusProcessingError, true},
		{PayoutStatusProcessing, PayoutStatusCompleted, true},
		{PayoutStatusProcessing, PayoutStatusFailed, true},
		{PayoutStatusProcessing, PayoutStatusProcessingError, true},
		{PayoutStatusProcessing, PayoutStatusPending, false},
		{PayoutStatusFailed, PayoutStatusPending, true},
		{PayoutStatusFailed, PayoutStatusProcessing, true},
		{PayoutStatusFailed, PayoutStatusCompleted, false},
		{PayoutStatusProcessingError, PayoutStatusPending, true},
		{PayoutStatusProcessingError, PayoutStatusProcessing, true},
		{PayoutStatusProcessingError, PayoutStatusCompleted, false},
		{PayoutStatusCompleted, PayoutStatusPending, false},
		{PayoutStatusCompleted, PayoutStatusProcessing, false},
		{PayoutStatusCompleted, PayoutStatusFailed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestPayoutStatusSameStateAllowed(t *testing.T) {
	t.Parallel()

	for _, status := range []PayoutStatus{
		PayoutStatusPending,
		PayoutStatusProcessing,
		PayoutStatusCompleted,
		PayoutStatusFailed,
		PayoutStatusProcessingError,
	} {
		if !status.CanTransitionTo(status) {
			t.Errorf("%s -> %s should be an idempotent no-op", status, status)
		}
	}
}

func TestPayoutStatusTerminal(t *testing.T) {
	t.Parallel()

	if !PayoutStatusCompleted.Terminal() {
		t.Error("completed must be terminal")
	}
	for _, status := range []PayoutStatus{
		PayoutStatusPending,
		PayoutStatusProcessing,
		PayoutStatusFailed,
		PayoutStatusProcessingError,
	} {
		if status.Terminal() {
			t.Errorf("%s must not be terminal", status)
		}
	}
}

func TestPayoutStatusValid(t *testing.T) {
	t.Parallel()

	if PayoutStatus("refunded").Valid() {
		t.Error("unknown status must not validate")
	}
	if !PayoutStatusProcessingError.Valid() {
		t.Error("processing_error must validate")
	}
}

func TestPayoutRetryable(t *testing.T) {
	t.Parallel()

	cases := map[PayoutStatus]bool{
		PayoutStatusPending:         true,
		PayoutStatusFailed:          true,
		PayoutStatusProcessingError: true,
		PayoutStatusProcessing:      false,
		PayoutStatusCompleted:       false,
	}
	for status, want := range cases {
		p := Payout{Status: status}
		if got := p.Retryable(); got != want {
			t.Errorf("Retryable() for %s: got %v, want %v", status, got, want)
		}
	}
}
