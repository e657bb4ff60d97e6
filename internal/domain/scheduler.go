package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventPayoutResult is the per-event outcome of one scheduler run.
type EventPayoutResult struct {
	EventID  uuid.UUID  `json:"event_id"`
	UserID   uuid.UUID  `json:"user_id"`
	PayoutID *uuid.UUID `json:"payout_id,omitempty"`
	Amount   int64      `json:"amount"`
	Success  bool       `json:"success"`
	Reason   string     `json:"reason,omitempty"`
}

// IneligibleEvent annotates a candidate that failed the per-event deep checks,
// with enough diagnostics to explain the exclusion.
type IneligibleEvent struct {
	Event   EligibleEvent  `json:"event"`
	Reason  string         `json:"reason"`
	Details map[string]any `json:"details,omitempty"`
}

// SchedulerExecutionResult is persisted once per scheduler invocation,
// including dry runs and runs that failed outright.
type SchedulerExecutionResult struct {
	ExecutionID    uuid.UUID           `json:"execution_id"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
	DryRun         bool                `json:"dry_run"`
	EligibleCount  int                 `json:"eligible_events_count"`
	SuccessCount   int                 `json:"successful_payouts"`
	FailureCount   int                 `json:"failed_payouts"`
	TotalAmount    int64               `json:"total_amount"`
	Results        []EventPayoutResult `json:"results"`
	Error          string              `json:"error,omitempty"`
}
