package domain

import (
	"time"

	"github.com/google/uuid"
)

type PayoutStatus string

const (
	PayoutStatusPending         PayoutStatus = "pending"
	PayoutStatusProcessing      PayoutStatus = "processing"
	PayoutStatusCompleted       PayoutStatus = "completed"
	PayoutStatusFailed          PayoutStatus = "failed"
	PayoutStatusProcessingError PayoutStatus = "processing_error"
)

// payoutTransitions is the authoritative transition table. A status not present
// as a key is terminal; a same-state transition is always a permitted no-op.
var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutStatusPending:         {PayoutStatusProcessing, PayoutStatusFailed, PayoutStatusProcessingError},
	PayoutStatusProcessing:      {PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusProcessingError},
	PayoutStatusFailed:          {PayoutStatusPending, PayoutStatusProcessing},
	PayoutStatusProcessingError: {PayoutStatusPending, PayoutStatusProcessing},
	PayoutStatusCompleted:       {},
}

func (s PayoutStatus) Valid() bool {
	_, ok := payoutTransitions[s]
	return ok
}

func (s PayoutStatus) Terminal() bool {
	return len(payoutTransitions[s]) == 0 && s.Valid()
}

// CanTransitionTo reports whether moving from s to next is legal. Same-state
// moves are treated as idempotent re-application and are always allowed.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range payoutTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Payout is one attempt to transfer an organizer's net proceeds for one event.
// Amounts are integer JPY. Failed attempts are never deleted; they stay as
// audit history and can re-enter the state machine through a retry.
type Payout struct {
	PayoutID         uuid.UUID    `json:"payout_id"`
	EventID          uuid.UUID    `json:"event_id"`
	UserID           uuid.UUID    `json:"user_id"`
	GrossSales       int64        `json:"total_gross_sales"`
	ProcessorFee     int64        `json:"total_processor_fee"`
	PlatformFee      int64        `json:"platform_fee"`
	NetAmount        int64        `json:"net_payout_amount"`
	Status           PayoutStatus `json:"status"`
	StripeTransferID *string      `json:"stripe_transfer_id,omitempty"`
	StripeAccountID  string       `json:"stripe_account_id"`
	TransferGroup    *string      `json:"transfer_group,omitempty"`
	RetryCount       int          `json:"retry_count"`
	LastError        *string      `json:"last_error,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	ProcessedAt      *time.Time   `json:"processed_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Retryable reports whether the payout may re-enter the state machine via a
// manual or scheduled retry.
func (p Payout) Retryable() bool {
	return p.Status == PayoutStatusFailed || p.Status == PayoutStatusPending ||
		p.Status == PayoutStatusProcessingError
}

// PayoutCalculation is the fee breakdown for one event, derived from a single
// atomic aggregation over its payment records.
type PayoutCalculation struct {
	GrossSales   int64 `json:"total_gross_sales"`
	ProcessorFee int64 `json:"total_processor_fee"`
	PlatformFee  int64 `json:"platform_fee"`
	NetAmount    int64 `json:"net_payout_amount"`
	PaymentCount int   `json:"payment_count"`
}
