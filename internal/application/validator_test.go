package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

func TestValidateProcessParams(t *testing.T) {
	t.Parallel()

	f := newTestFixture()
	v := f.service.Validator()

	err := v.ValidateProcessParams(ProcessPayoutInput{EventID: uuid.Nil, UserID: uuid.New()})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("nil event id: err = %v, want ErrInvalidInput", err)
	}
	err = v.ValidateProcessParams(ProcessPayoutInput{EventID: uuid.New(), UserID: uuid.Nil})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("nil user id: err = %v, want ErrInvalidInput", err)
	}

	// Length is measured in runes, not bytes: 500 multibyte characters fit.
	longNotes := strings.Repeat("あ", 500)
	err = v.ValidateProcessParams(ProcessPayoutInput{EventID: uuid.New(), UserID: uuid.New(), Notes: longNotes})
	if err != nil {
		t.Fatalf("500-rune notes rejected: %v", err)
	}
	err = v.ValidateProcessParams(ProcessPayoutInput{EventID: uuid.New(), UserID: uuid.New(), Notes: longNotes + "あ"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("501-rune notes: err = %v, want ErrInvalidInput", err)
	}
}

func TestElapsedDaysLocalCalendar(t *testing.T) {
	t.Parallel()

	if _, err := time.LoadLocation("Asia/Tokyo"); err != nil {
		t.Skip("tzdata not available")
	}
	f := newTestFixture()
	v := f.service.Validator()
	v.cfg.OrganizerTimezone = "Asia/Tokyo"

	// 15:00 UTC on Jan 10 is already Jan 11 in Tokyo, so only four local
	// calendar days have passed by 14:00 UTC on Jan 15.
	eventDate := time.Date(2026, time.January, 10, 15, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.January, 15, 14, 0, 0, 0, time.UTC)
	if got := v.ElapsedDays(eventDate, now); got != 4 {
		t.Fatalf("ElapsedDays = %d, want 4", got)
	}

	// Same instants measured in UTC give five days.
	v.cfg.OrganizerTimezone = "UTC"
	if got := v.ElapsedDays(eventDate, now); got != 5 {
		t.Fatalf("ElapsedDays (UTC) = %d, want 5", got)
	}
}

func TestValidateEventEligibility(t *testing.T) {
	t.Parallel()

	t.Run("unknown event", func(t *testing.T) {
		t.Parallel()
		f := newTestFixture()
		_, err := f.service.Validator().ValidateEventEligibility(context.Background(), uuid.New(), uuid.New())
		if !errors.Is(err, domain.ErrEventNotFound) {
			t.Fatalf("err = %v, want ErrEventNotFound", err)
		}
	})

	t.Run("not the owner", func(t *testing.T) {
		t.Parallel()
		f := newTestFixture()
		owner := f.readyOrganizer()
		eventID := f.finishedEvent(owner, 10000, 3)
		_, err := f.service.Validator().ValidateEventEligibility(context.Background(), eventID, uuid.New())
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("canceled event", func(t *testing.T) {
		t.Parallel()
		f := newTestFixture()
		owner := f.readyOrganizer()
		eventID := uuid.New()
		f.events.addEvent(eventFixture{record: ports.EventRecord{
			EventID:   eventID,
			OwnerID:   owner,
			EventDate: f.now.AddDate(0, 0, -8),
			Canceled:  true,
		}})
		_, err := f.service.Validator().ValidateEventEligibility(context.Background(), eventID, owner)
		assertEligibilityReason(t, err, "event_canceled")
	})

	t.Run("event not finished", func(t *testing.T) {
		t.Parallel()
		f := newTestFixture()
		owner := f.readyOrganizer()
		eventID := uuid.New()
		f.events.addEvent(eventFixture{record: ports.EventRecord{
			EventID:   eventID,
			OwnerID:   owner,
			EventDate: f.now.AddDate(0, 0, 1),
		}})
		_, err := f.service.Validator().ValidateEventEligibility(context.Background(), eventID, owner)
		assertEligibilityReason(t, err, "event_not_finished")
	})

	t.Run("waiting period reports days remaining", func(t *testing.T) {
		t.Parallel()
		f := newTestFixture()
		owner := f.readyOrganizer()
		eventID := uuid.New()
		f.events.addEvent(eventFixture{record: ports.EventRecord{
			EventID:   eventID,
			OwnerID:   owner,
			EventDate: f.now.AddDate(0, 0, -3),
		}})
		_, err := f.service.Validator().ValidateEventEligibility(context.Background(), eventID, owner)
		eligErr := assertEligibilityReason(t, err, "waiting_period")
		if eligErr.Details["elapsed_days"] != 3 {
			t.Errorf("elapsed_days = %v, want 3", eligErr.Details["elapsed_days"])
		}
		if eligErr.Details["days_remaining"] != 2 {
			t.Errorf("days_remaining = %v, want 2", eligErr.Details["days_remaining"])
		}
	})

	t.Run("existing payout blocks", func(t *testing.T) {
		t.Parallel()
		f := newTestFixture()
		owner := f.readyOrganizer()
		eventID := f.finishedEvent(owner, 10000, 3)
		existing := domain.Payout{
			PayoutID: uuid.New(),
			EventID:  eventID,
			UserID:   owner,
			Status:   domain.PayoutStatusCompleted,
		}
		f.payouts.records[existing.PayoutID] = existing
		_, err := f.service.Validator().ValidateEventEligibility(context.Background(), eventID, owner)
		if !errors.Is(err, domain.ErrPayoutAlreadyExists) {
			t.Fatalf("err = %v, want ErrPayoutAlreadyExists", err)
		}
	})

	t.Run("failed payout does not block", func(t *testing.T) {
		t.Parallel()
		f := newTestFixture()
		owner := f.readyOrganizer()
		eventID := f.finishedEvent(owner, 10000, 3)
		failed := domain.Payout{
			PayoutID: uuid.New(),
			EventID:  eventID,
			UserID:   owner,
			Status:   domain.PayoutStatusFailed,
		}
		f.payouts.records[failed.PayoutID] = failed
		if _, err := f.service.Validator().ValidateEventEligibility(context.Background(), eventID, owner); err != nil {
			t.Fatalf("failed payout must not block a retry: %v", err)
		}
	})

	t.Run("no card payments", func(t *testing.T) {
		t.Parallel()
		f := newTestFixture()
		owner := f.readyOrganizer()
		eventID := f.finishedEvent(owner, 0, 0)
		_, err := f.service.Validator().ValidateEventEligibility(context.Background(), eventID, owner)
		assertEligibilityReason(t, err, "no_card_payments")
	})
}

func TestValidateConnectAccount(t *testing.T) {
	t.Parallel()

	f := newTestFixture()
	v := f.service.Validator()
	ctx := context.Background()

	_, err := v.ValidateConnectAccount(ctx, uuid.New())
	assertEligibilityReason(t, err, "account_missing")

	unverified := uuid.New()
	f.accounts.accounts[unverified] = domain.ConnectAccount{UserID: unverified, AccountID: "acct_1", PayoutsEnabled: true}
	_, err = v.ValidateConnectAccount(ctx, unverified)
	assertEligibilityReason(t, err, "account_unverified")

	disabled := uuid.New()
	f.accounts.accounts[disabled] = domain.ConnectAccount{UserID: disabled, AccountID: "acct_2", Verified: true}
	_, err = v.ValidateConnectAccount(ctx, disabled)
	assertEligibilityReason(t, err, "payouts_disabled")

	ready := f.readyOrganizer()
	account, err := v.ValidateConnectAccount(ctx, ready)
	if err != nil {
		t.Fatalf("ready account rejected: %v", err)
	}
	if !account.Ready() {
		t.Error("returned account must report Ready")
	}
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	f := newTestFixture()
	v := f.service.Validator()
	fees := domain.FeeConfig{MinPayoutAmount: 1000, MaxPayoutAmount: 1000000}

	if err := v.ValidateAmount(0, fees); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("zero amount: err = %v, want ErrInvalidInput", err)
	}
	if err := v.ValidateAmount(999, fees); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("below minimum: err = %v, want ErrInsufficientBalance", err)
	}
	if err := v.ValidateAmount(1000001, fees); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("above maximum: err = %v, want ErrInvalidInput", err)
	}
	if err := v.ValidateAmount(1000, fees); err != nil {
		t.Errorf("minimum exactly: %v", err)
	}
}

func TestManualPayoutEligibilityCollectsAllViolations(t *testing.T) {
	t.Parallel()

	f := newTestFixture()
	owner := uuid.New() // no connect account registered
	eventID := uuid.New()
	f.events.addEvent(eventFixture{record: ports.EventRecord{
		EventID:   eventID,
		OwnerID:   owner,
		EventDate: f.now.AddDate(0, 0, -2), // waiting period not over
	}}) // and zero card payments

	fees, err := f.service.FeeConfig().Get(context.Background(), false)
	if err != nil {
		t.Fatalf("fee config: %v", err)
	}
	report, err := f.service.Validator().ManualPayoutEligibility(context.Background(), eventID, owner, fees)
	if err != nil {
		t.Fatalf("ManualPayoutEligibility: %v", err)
	}
	if report.Eligible {
		t.Fatal("report must not be eligible")
	}
	// Unlike the automatic path, every violated rule is reported.
	if len(report.Reasons) < 4 {
		t.Fatalf("reasons = %v, want waiting period, account, payments and minimum all reported", report.Reasons)
	}
	if report.DaysRemaining != 3 {
		t.Errorf("DaysRemaining = %d, want 3", report.DaysRemaining)
	}
}

func TestManualPayoutEligibilityHappyPath(t *testing.T) {
	t.Parallel()

	f := newTestFixture()
	owner := f.readyOrganizer()
	eventID := f.finishedEvent(owner, 10000, 3)

	fees, err := f.service.FeeConfig().Get(context.Background(), false)
	if err != nil {
		t.Fatalf("fee config: %v", err)
	}
	report, err := f.service.Validator().ManualPayoutEligibility(context.Background(), eventID, owner, fees)
	if err != nil {
		t.Fatalf("ManualPayoutEligibility: %v", err)
	}
	if !report.Eligible {
		t.Fatalf("report not eligible: %v", report.Reasons)
	}
	if report.EstimatedNet != 9640 {
		t.Errorf("EstimatedNet = %d, want 9640", report.EstimatedNet)
	}
	if !report.AccountReady {
		t.Error("AccountReady must be true")
	}
	if report.PaymentCount != 3 {
		t.Errorf("PaymentCount = %d, want 3", report.PaymentCount)
	}
}

func assertEligibilityReason(t *testing.T, err error, reason string) *domain.EligibilityError {
	t.Helper()
	var eligErr *domain.EligibilityError
	if !errors.As(err, &eligErr) {
		t.Fatalf("err = %v, want *EligibilityError(%s)", err, reason)
	}
	if eligErr.Reason != reason {
		t.Fatalf("reason = %q, want %q", eligErr.Reason, reason)
	}
	return eligErr
}
