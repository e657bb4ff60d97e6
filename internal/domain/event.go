package domain

import (
	"time"

	"github.com/google/uuid"
)

// EligibleEvent is a read projection describing a payout candidate. It is
// computed on demand by the candidate query and never persisted.
type EligibleEvent struct {
	EventID        uuid.UUID `json:"event_id"`
	Title          string    `json:"title"`
	EventDate      time.Time `json:"event_date"`
	OrganizerID    uuid.UUID `json:"organizer_id"`
	PaidAttendance int       `json:"paid_attendance"`
	CardSalesTotal int64     `json:"card_sales_total"`
	EstimatedNet   int64     `json:"estimated_net,omitempty"`
}

// ConnectAccount is the organizer's externally linked account capable of
// receiving transfers.
type ConnectAccount struct {
	UserID          uuid.UUID `json:"user_id"`
	AccountID       string    `json:"account_id"`
	Verified        bool      `json:"verified"`
	PayoutsEnabled  bool      `json:"payouts_enabled"`
	DefaultCurrency string    `json:"default_currency"`
}

// Ready reports whether the account can receive a transfer right now.
func (a ConnectAccount) Ready() bool {
	return a.AccountID != "" && a.Verified && a.PayoutsEnabled
}
