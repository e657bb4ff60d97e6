package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

type fakePayoutRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.Payout

	failCreate error
	failUpdate map[domain.PayoutStatus]error
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{
		records:    map[uuid.UUID]domain.Payout{},
		failUpdate: map[domain.PayoutStatus]error{},
	}
}

func (r *fakePayoutRepo) CreateIfAbsent(_ context.Context, payout domain.Payout) (domain.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return domain.Payout{}, r.failCreate
	}
	for _, existing := range r.records {
		if existing.EventID == payout.EventID && existing.UserID == payout.UserID &&
			existing.Status != domain.PayoutStatusFailed {
			return domain.Payout{}, domain.ErrPayoutAlreadyExists
		}
	}
	r.records[payout.PayoutID] = payout
	return payout, nil
}

func (r *fakePayoutRepo) UpdateStatus(_ context.Context, payoutID uuid.UUID, next domain.PayoutStatus, update ports.StatusUpdate) (domain.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failUpdate[next]; err != nil {
		return domain.Payout{}, err
	}
	rec, ok := r.records[payoutID]
	if !ok {
		return domain.Payout{}, domain.ErrPayoutNotFound
	}
	if !rec.Status.CanTransitionTo(next) {
		return rec, fmt.Errorf("%s -> %s: %w", rec.Status, next, domain.ErrInvalidStatusTransition)
	}
	rec.Status = next
	if update.TransferID != nil {
		rec.StripeTransferID = update.TransferID
	}
	if update.LastError != nil {
		rec.LastError = update.LastError
	}
	if update.IncrementRetry {
		rec.RetryCount++
	}
	if update.MarkProcessed {
		now := time.Now().UTC()
		rec.ProcessedAt = &now
	}
	r.records[payoutID] = rec
	return rec, nil
}

func (r *fakePayoutRepo) GetByID(_ context.Context, payoutID uuid.UUID) (domain.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[payoutID]
	if !ok {
		return domain.Payout{}, domain.ErrPayoutNotFound
	}
	return rec, nil
}

func (r *fakePayoutRepo) GetByEvent(_ context.Context, eventID uuid.UUID) (domain.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.EventID == eventID && rec.Status != domain.PayoutStatusFailed {
			return rec, nil
		}
	}
	return domain.Payout{}, domain.ErrPayoutNotFound
}

func (r *fakePayoutRepo) List(_ context.Context, query ports.HistoryQuery) ([]domain.Payout, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []domain.Payout
	for _, rec := range r.records {
		if query.UserID != uuid.Nil && rec.UserID != query.UserID {
			continue
		}
		if query.EventID != uuid.Nil && rec.EventID != query.EventID {
			continue
		}
		if query.Status != "" && rec.Status != query.Status {
			continue
		}
		items = append(items, rec)
	}
	return items, len(items), nil
}

type eventFixture struct {
	record     ports.EventRecord
	cardCount  int
	grossSales int64
}

type fakeEventRepo struct {
	mu         sync.Mutex
	events     map[uuid.UUID]eventFixture
	candidates []domain.EligibleEvent

	failCandidates error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[uuid.UUID]eventFixture{}}
}

func (r *fakeEventRepo) addEvent(fix eventFixture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[fix.record.EventID] = fix
}

func (r *fakeEventRepo) GetEvent(_ context.Context, eventID uuid.UUID) (ports.EventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fix, ok := r.events[eventID]
	if !ok {
		return ports.EventRecord{}, domain.ErrEventNotFound
	}
	return fix.record, nil
}

func (r *fakeEventRepo) CountCardPayments(_ context.Context, eventID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[eventID].cardCount, nil
}

func (r *fakeEventRepo) CalculateSales(_ context.Context, eventID uuid.UUID, processorRate float64, processorFixedFee int64) (ports.SalesAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fix := r.events[eventID]
	fee := int64(float64(fix.grossSales)*processorRate) + processorFixedFee*int64(fix.cardCount)
	return ports.SalesAggregate{
		GrossSales:   fix.grossSales,
		ProcessorFee: fee,
		PaymentCount: fix.cardCount,
	}, nil
}

func (r *fakeEventRepo) FindPayoutCandidates(_ context.Context, _ ports.CandidateQuery) ([]domain.EligibleEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCandidates != nil {
		return nil, r.failCandidates
	}
	return r.candidates, nil
}

type fakeAccountReader struct {
	accounts map[uuid.UUID]domain.ConnectAccount
}

func (r *fakeAccountReader) GetByUser(_ context.Context, userID uuid.UUID) (domain.ConnectAccount, error) {
	account, ok := r.accounts[userID]
	if !ok {
		return domain.ConnectAccount{}, domain.ErrAccountNotReady
	}
	return account, nil
}

type fakeFeeRepo struct {
	mu    sync.Mutex
	cfg   domain.FeeConfig
	err   error
	loads int
}

func (r *fakeFeeRepo) Load(_ context.Context) (domain.FeeConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.err != nil {
		return domain.FeeConfig{}, r.err
	}
	return r.cfg, nil
}

type fakeTransferClient struct {
	mu       sync.Mutex
	requests []ports.TransferRequest
	err      error
	errFor   map[string]error // keyed by destination account
	getErr   error
	result   ports.TransferResult
}

func (c *fakeTransferClient) CreateTransfer(_ context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return ports.TransferResult{}, c.err
	}
	if err := c.errFor[req.Destination]; err != nil {
		return ports.TransferResult{}, err
	}
	result := c.result
	if result.TransferID == "" {
		result.TransferID = "tr_" + req.PayoutID.String()[:8]
	}
	result.Amount = req.Amount
	result.Destination = req.Destination
	return result, nil
}

func (c *fakeTransferClient) GetTransfer(_ context.Context, transferID string) (ports.TransferResult, error) {
	if c.getErr != nil {
		return ports.TransferResult{}, c.getErr
	}
	return ports.TransferResult{TransferID: transferID}, nil
}

func (c *fakeTransferClient) CancelTransfer(_ context.Context, transferID string) (ports.ReversalResult, error) {
	if c.err != nil {
		return ports.ReversalResult{}, c.err
	}
	return ports.ReversalResult{ReversalID: "trr_1", TransferID: transferID}, nil
}

type fakeDedupStore struct {
	mu   sync.Mutex
	seen map[string]string
}

func newFakeDedupStore() *fakeDedupStore {
	return &fakeDedupStore{seen: map[string]string{}}
}

func (s *fakeDedupStore) IsDuplicate(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[eventID]
	return ok, nil
}

func (s *fakeDedupStore) MarkProcessed(_ context.Context, eventID, eventType string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID] = eventType
	return nil
}

type fakeSchedulerLogs struct {
	mu      sync.Mutex
	entries []domain.SchedulerExecutionResult
}

func (r *fakeSchedulerLogs) Insert(_ context.Context, result domain.SchedulerExecutionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, result)
	return nil
}

func (r *fakeSchedulerLogs) List(_ context.Context, query ports.SchedulerLogQuery) ([]domain.SchedulerExecutionResult, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries, len(r.entries), nil
}

func (r *fakeSchedulerLogs) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.SchedulerExecutionResult
	var deleted int64
	for _, entry := range r.entries {
		if entry.StartedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return deleted, nil
}

// testFixture wires a service over fakes with a pinned clock and standard
// JP schedule: 3.6% processor rate, no platform fee, 1000 JPY minimum.
type testFixture struct {
	now       time.Time
	payouts   *fakePayoutRepo
	events    *fakeEventRepo
	accounts  *fakeAccountReader
	transfers *fakeTransferClient
	dedup     *fakeDedupStore
	feeRepo   *fakeFeeRepo
	logs      *fakeSchedulerLogs
	service   *Service
}

func newTestFixture() *testFixture {
	f := &testFixture{
		now:       time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC),
		payouts:   newFakePayoutRepo(),
		events:    newFakeEventRepo(),
		accounts:  &fakeAccountReader{accounts: map[uuid.UUID]domain.ConnectAccount{}},
		transfers: &fakeTransferClient{},
		dedup:     newFakeDedupStore(),
		feeRepo: &fakeFeeRepo{cfg: domain.FeeConfig{
			ProcessorRate:   0.036,
			MinPayoutAmount: 1000,
		}},
		logs: &fakeSchedulerLogs{},
	}
	f.service = NewService(Dependencies{
		Config:    Config{OrganizerTimezone: "UTC"},
		Payouts:   f.payouts,
		Events:    f.events,
		Accounts:  f.accounts,
		Transfers: f.transfers,
		Dedup:     f.dedup,
		FeeConfig: f.feeRepo,
	})
	f.service.nowFn = func() time.Time { return f.now }
	f.service.validator.nowFn = f.service.nowFn
	f.service.fees.nowFn = f.service.nowFn
	return f
}

func (f *testFixture) scheduler() *Scheduler {
	return NewScheduler(SchedulerDependencies{
		Service: f.service,
		Events:  f.events,
		Logs:    f.logs,
	})
}

// readyOrganizer registers a verified account and returns its user id.
func (f *testFixture) readyOrganizer() uuid.UUID {
	userID := uuid.New()
	f.accounts.accounts[userID] = domain.ConnectAccount{
		UserID:          userID,
		AccountID:       "acct_" + userID.String()[:8],
		Verified:        true,
		PayoutsEnabled:  true,
		DefaultCurrency: "jpy",
	}
	return userID
}

// finishedEvent registers an event that ended eight days before the pinned
// clock with the given card sales.
func (f *testFixture) finishedEvent(ownerID uuid.UUID, gross int64, payments int) uuid.UUID {
	eventID := uuid.New()
	f.events.addEvent(eventFixture{
		record: ports.EventRecord{
			EventID:   eventID,
			OwnerID:   ownerID,
			Title:     "test event",
			EventDate: f.now.AddDate(0, 0, -8),
		},
		cardCount:  payments,
		grossSales: gross,
	})
	return eventID
}
