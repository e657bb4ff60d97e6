package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

// Validator is the rule engine gating payout execution. Rules are evaluated
// against fresh reads; the validator itself holds no mutable state.
type Validator struct {
	cfg      Config
	events   ports.EventRepository
	payouts  ports.PayoutRepository
	accounts ports.ConnectAccountReader
	nowFn    func() time.Time
}

func (v *Validator) ValidateProcessParams(input ProcessPayoutInput) error {
	if input.EventID == uuid.Nil {
		return fmt.Errorf("%w: event id is required", domain.ErrInvalidInput)
	}
	if input.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if len([]rune(input.Notes)) > v.cfg.NotesMaxLength {
		return fmt.Errorf("%w: notes longer than %d characters", domain.ErrInvalidInput, v.cfg.NotesMaxLength)
	}
	return nil
}

// ElapsedDays returns whole calendar days between the event date and now,
// measured in the organizer's local calendar so a payout does not unlock at a
// different moment depending on the server's UTC offset.
func (v *Validator) ElapsedDays(eventDate, now time.Time) int {
	loc, err := time.LoadLocation(v.cfg.OrganizerTimezone)
	if err != nil {
		loc = time.UTC
	}
	e := eventDate.In(loc)
	n := now.In(loc)
	eventDay := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	return int(today.Sub(eventDay) / (24 * time.Hour))
}

// ValidateEventEligibility checks every automatic-payout precondition for one
// event. It fails on the first violated rule with a typed reason.
func (v *Validator) ValidateEventEligibility(ctx context.Context, eventID, userID uuid.UUID) (ports.EventRecord, error) {
	event, err := v.events.GetEvent(ctx, eventID)
	if err != nil {
		return ports.EventRecord{}, err
	}
	if event.OwnerID != userID {
		return ports.EventRecord{}, fmt.Errorf("%w: user %s does not own event %s", domain.ErrForbidden, userID, eventID)
	}
	if event.Canceled {
		return ports.EventRecord{}, &domain.EligibilityError{Err: domain.ErrEventNotEligible, Reason: "event_canceled"}
	}
	now := v.nowFn()
	if event.EventDate.After(now) {
		return ports.EventRecord{}, &domain.EligibilityError{Err: domain.ErrEventNotEligible, Reason: "event_not_finished"}
	}
	elapsed := v.ElapsedDays(event.EventDate, now)
	if elapsed < v.cfg.MinElapsedDays {
		return ports.EventRecord{}, &domain.EligibilityError{
			Err:    domain.ErrEventNotEligible,
			Reason: "waiting_period",
			Details: map[string]any{
				"elapsed_days":   elapsed,
				"required_days":  v.cfg.MinElapsedDays,
				"days_remaining": v.cfg.MinElapsedDays - elapsed,
			},
		}
	}
	if _, err := v.payouts.GetByEvent(ctx, eventID); err == nil {
		return ports.EventRecord{}, domain.ErrPayoutAlreadyExists
	} else if !errors.Is(err, domain.ErrPayoutNotFound) {
		return ports.EventRecord{}, err
	}
	count, err := v.events.CountCardPayments(ctx, eventID)
	if err != nil {
		return ports.EventRecord{}, err
	}
	if count == 0 {
		return ports.EventRecord{}, &domain.EligibilityError{Err: domain.ErrEventNotEligible, Reason: "no_card_payments"}
	}
	return event, nil
}

// ValidateConnectAccount confirms the organizer can receive a transfer right
// now. Every failure is a typed account-not-ready error; the caller never
// proceeds on a partial account.
func (v *Validator) ValidateConnectAccount(ctx context.Context, userID uuid.UUID) (domain.ConnectAccount, error) {
	account, err := v.accounts.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotReady) || errors.Is(err, domain.ErrPayoutNotFound) {
			return domain.ConnectAccount{}, &domain.EligibilityError{Err: domain.ErrAccountNotReady, Reason: "account_missing"}
		}
		return domain.ConnectAccount{}, err
	}
	if account.AccountID == "" {
		return domain.ConnectAccount{}, &domain.EligibilityError{Err: domain.ErrAccountNotReady, Reason: "account_missing"}
	}
	if !account.Verified {
		return domain.ConnectAccount{}, &domain.EligibilityError{Err: domain.ErrAccountNotReady, Reason: "account_unverified"}
	}
	if !account.PayoutsEnabled {
		return domain.ConnectAccount{}, &domain.EligibilityError{Err: domain.ErrAccountNotReady, Reason: "payouts_disabled"}
	}
	return account, nil
}

func (v *Validator) ValidateAmount(amount int64, fees domain.FeeConfig) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be a positive integer", domain.ErrInvalidInput)
	}
	if amount < fees.MinPayoutAmount {
		return fmt.Errorf("%w: %d below minimum %d", domain.ErrInsufficientBalance, amount, fees.MinPayoutAmount)
	}
	if fees.MaxPayoutAmount > 0 && amount > fees.MaxPayoutAmount {
		return fmt.Errorf("%w: %d above maximum %d", domain.ErrInvalidInput, amount, fees.MaxPayoutAmount)
	}
	return nil
}

func (v *Validator) ValidateStatusTransition(from, to domain.PayoutStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, from, to)
	}
	return nil
}

// ManualEligibilityReport explains why a manual payout is or is not possible,
// rather than only that it is blocked.
type ManualEligibilityReport struct {
	Eligible             bool     `json:"eligible"`
	Reasons              []string `json:"reasons,omitempty"`
	ElapsedDays          int      `json:"elapsed_days"`
	DaysRemaining        int      `json:"days_remaining"`
	AccountReady         bool     `json:"account_ready"`
	PaymentCount         int      `json:"payment_count"`
	EstimatedNet         int64    `json:"estimated_net"`
	ExistingPayoutStatus string   `json:"existing_payout_status,omitempty"`
}

// ManualPayoutEligibility re-derives every automatic-payout condition into a
// structured report. Unlike ValidateEventEligibility it does not stop at the
// first violation: an admin reviewing a blocked payout needs all of them.
func (v *Validator) ManualPayoutEligibility(ctx context.Context, eventID, userID uuid.UUID, fees domain.FeeConfig) (ManualEligibilityReport, error) {
	report := ManualEligibilityReport{Eligible: true}
	fail := func(reason string) {
		report.Eligible = false
		report.Reasons = append(report.Reasons, reason)
	}

	event, err := v.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			fail("event does not exist")
			return report, nil
		}
		return ManualEligibilityReport{}, err
	}
	if event.OwnerID != userID {
		fail("user is not the event organizer")
	}
	if event.Canceled {
		fail("event is canceled")
	}
	now := v.nowFn()
	if event.EventDate.After(now) {
		fail("event has not finished")
	} else {
		report.ElapsedDays = v.ElapsedDays(event.EventDate, now)
		if report.ElapsedDays < v.cfg.MinElapsedDays {
			report.DaysRemaining = v.cfg.MinElapsedDays - report.ElapsedDays
			fail(fmt.Sprintf("waiting period not over: %d day(s) remaining", report.DaysRemaining))
		}
	}

	if existing, err := v.payouts.GetByEvent(ctx, eventID); err == nil {
		report.ExistingPayoutStatus = string(existing.Status)
		fail(fmt.Sprintf("payout already exists with status %s", existing.Status))
	} else if !errors.Is(err, domain.ErrPayoutNotFound) {
		return ManualEligibilityReport{}, err
	}

	if account, err := v.ValidateConnectAccount(ctx, userID); err == nil {
		report.AccountReady = account.Ready()
	} else {
		var eligErr *domain.EligibilityError
		if !errors.As(err, &eligErr) {
			return ManualEligibilityReport{}, err
		}
		fail("connect account not ready: " + eligErr.Reason)
	}

	count, err := v.events.CountCardPayments(ctx, eventID)
	if err != nil {
		return ManualEligibilityReport{}, err
	}
	report.PaymentCount = count
	if count == 0 {
		fail("no successful card payments")
	}

	sales, err := v.events.CalculateSales(ctx, eventID, fees.ProcessorRate, fees.ProcessorFixedFee)
	if err != nil {
		return ManualEligibilityReport{}, err
	}
	net := sales.GrossSales - sales.ProcessorFee - fees.PlatformFeeFor(sales.GrossSales)
	report.EstimatedNet = net
	if net < fees.MinPayoutAmount {
		fail(fmt.Sprintf("estimated net %d below minimum payout %d", net, fees.MinPayoutAmount))
	}

	return report, nil
}
