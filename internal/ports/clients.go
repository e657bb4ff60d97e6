package ports

import (
	"context"

	"github.com/google/uuid"
)

// TransferRequest describes one outbound transfer. Metadata must link back to
// the event, payout and user so processor-side records can be reconciled.
type TransferRequest struct {
	PayoutID      uuid.UUID
	Amount        int64
	Currency      string
	Destination   string
	TransferGroup string
	Metadata      map[string]string
}

// TransferResult reports the processor outcome plus the retry telemetry the
// scheduler uses for back-pressure tuning.
type TransferResult struct {
	TransferID  string
	Amount      int64
	Destination string
	Reversed    bool
	Retries     int
	RateLimited bool
}

type ReversalResult struct {
	ReversalID string
	TransferID string
	Amount     int64
}

// TransferClient is the idempotent, retrying wrapper around the payment
// processor's transfer API. Repeated CreateTransfer calls with identical
// inputs must never create a second transfer at the processor.
type TransferClient interface {
	CreateTransfer(ctx context.Context, req TransferRequest) (TransferResult, error)
	GetTransfer(ctx context.Context, transferID string) (TransferResult, error)
	// CancelTransfer reverses an existing transfer; direct cancellation is not
	// supported once a transfer exists.
	CancelTransfer(ctx context.Context, transferID string) (ReversalResult, error)
}
