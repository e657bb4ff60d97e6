package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rytkhs/event-pay-sub006/internal/domain"
)

// StatusUpdate carries the optional fields written together with a status
// transition. The transition itself is a single conditional update keyed on
// the current status, so concurrent writers cannot interleave.
type StatusUpdate struct {
	TransferID     *string
	LastError      *string
	IncrementRetry bool
	MarkProcessed  bool
}

type HistoryQuery struct {
	UserID  uuid.UUID
	EventID uuid.UUID
	Status  domain.PayoutStatus
	Limit   int
	Offset  int
}

type PayoutRepository interface {
	// CreateIfAbsent performs the atomic insert-with-uniqueness-check. A
	// concurrent or prior payout for the same (event, user) surfaces as
	// domain.ErrPayoutAlreadyExists.
	CreateIfAbsent(ctx context.Context, payout domain.Payout) (domain.Payout, error)
	// UpdateStatus applies one atomic compare-and-swap transition. If the
	// current status does not permit the move it returns the current record
	// alongside domain.ErrInvalidStatusTransition; a same-state update is an
	// idempotent no-op.
	UpdateStatus(ctx context.Context, payoutID uuid.UUID, next domain.PayoutStatus, update StatusUpdate) (domain.Payout, error)
	GetByID(ctx context.Context, payoutID uuid.UUID) (domain.Payout, error)
	GetByEvent(ctx context.Context, eventID uuid.UUID) (domain.Payout, error)
	List(ctx context.Context, query HistoryQuery) ([]domain.Payout, int, error)
}

type FeeConfigRepository interface {
	// Load reads the singleton fee schedule. A missing row or a null value in
	// processor rate, processor fixed fee or minimum payout amount returns
	// domain.ErrConfigMissing.
	Load(ctx context.Context) (domain.FeeConfig, error)
}

// EventRecord is the slice of the event row the payout engine needs.
type EventRecord struct {
	EventID   uuid.UUID
	OwnerID   uuid.UUID
	Title     string
	EventDate time.Time
	Canceled  bool
}

// SalesAggregate is the result of the per-event aggregation routine.
type SalesAggregate struct {
	GrossSales   int64
	ProcessorFee int64
	PaymentCount int
}

type CandidateQuery struct {
	MinElapsedDays int
	MinAmount      int64
	OwnerID        *uuid.UUID
	Limit          int
}

type EventRepository interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (EventRecord, error)
	// CountCardPayments counts successful card-channel payments for an event.
	CountCardPayments(ctx context.Context, eventID uuid.UUID) (int, error)
	// CalculateSales runs the atomic sales/fee aggregation for one event,
	// applying the given processor fee schedule per successful card payment.
	CalculateSales(ctx context.Context, eventID uuid.UUID, processorRate float64, processorFixedFee int64) (SalesAggregate, error)
	// FindPayoutCandidates is the bulk SQL filter: past events past the
	// elapsed-days gate with card sales above the minimum and no payout yet.
	FindPayoutCandidates(ctx context.Context, query CandidateQuery) ([]domain.EligibleEvent, error)
}

type ConnectAccountReader interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (domain.ConnectAccount, error)
}

type SchedulerLogQuery struct {
	Limit  int
	Offset int
}

type SchedulerLogRepository interface {
	Insert(ctx context.Context, result domain.SchedulerExecutionResult) error
	List(ctx context.Context, query SchedulerLogQuery) ([]domain.SchedulerExecutionResult, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventDedupStore suppresses replayed webhook deliveries.
type EventDedupStore interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, ttl time.Duration) error
}
