package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

// CalculatePayoutAmount derives gross sales, processor fee, platform fee and
// net amount for one event from a single atomic aggregation, using the given
// pinned fee schedule. A negative net means the schedule is misconfigured and
// is raised as a calculation error, never returned.
func (s *Service) CalculatePayoutAmount(ctx context.Context, eventID uuid.UUID, fees domain.FeeConfig) (domain.PayoutCalculation, error) {
	sales, err := s.events.CalculateSales(ctx, eventID, fees.ProcessorRate, fees.ProcessorFixedFee)
	if err != nil {
		return domain.PayoutCalculation{}, fmt.Errorf("aggregate event sales: %w", err)
	}
	platformFee := fees.PlatformFeeFor(sales.GrossSales)
	net := sales.GrossSales - sales.ProcessorFee - platformFee
	if net < 0 {
		return domain.PayoutCalculation{}, fmt.Errorf("%w: net %d for event %s (gross=%d processor=%d platform=%d)",
			domain.ErrCalculation, net, eventID, sales.GrossSales, sales.ProcessorFee, platformFee)
	}
	calc := domain.PayoutCalculation{
		GrossSales:   sales.GrossSales,
		ProcessorFee: sales.ProcessorFee,
		PlatformFee:  platformFee,
		NetAmount:    net,
		PaymentCount: sales.PaymentCount,
	}
	if net < fees.MinPayoutAmount {
		return calc, fmt.Errorf("%w: net %d below minimum %d", domain.ErrInsufficientBalance, net, fees.MinPayoutAmount)
	}
	return calc, nil
}

// EligibilityCheck is the quick yes/no answer used by the organizer UI.
type EligibilityCheck struct {
	Eligible     bool                     `json:"eligible"`
	Reason       string                   `json:"reason,omitempty"`
	Details      map[string]any           `json:"details,omitempty"`
	EstimatedNet int64                    `json:"estimated_net,omitempty"`
	Calculation  *domain.PayoutCalculation `json:"calculation,omitempty"`
}

func (s *Service) CheckPayoutEligibility(ctx context.Context, actor Actor, eventID, userID uuid.UUID) (EligibilityCheck, error) {
	if err := s.authorize(actor, userID); err != nil {
		return EligibilityCheck{}, err
	}
	if _, err := s.validator.ValidateEventEligibility(ctx, eventID, userID); err != nil {
		return eligibilityCheckFromError(err)
	}
	if _, err := s.validator.ValidateConnectAccount(ctx, userID); err != nil {
		return eligibilityCheckFromError(err)
	}
	fees, err := s.fees.Get(ctx, false)
	if err != nil {
		return EligibilityCheck{}, err
	}
	calc, err := s.CalculatePayoutAmount(ctx, eventID, fees)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return EligibilityCheck{Reason: "below_minimum", EstimatedNet: calc.NetAmount}, nil
		}
		return EligibilityCheck{}, err
	}
	return EligibilityCheck{Eligible: true, EstimatedNet: calc.NetAmount, Calculation: &calc}, nil
}

func eligibilityCheckFromError(err error) (EligibilityCheck, error) {
	var eligErr *domain.EligibilityError
	if errors.As(err, &eligErr) {
		return EligibilityCheck{Reason: eligErr.Reason, Details: eligErr.Details}, nil
	}
	switch {
	case errors.Is(err, domain.ErrPayoutAlreadyExists):
		return EligibilityCheck{Reason: "payout_exists"}, nil
	case errors.Is(err, domain.ErrEventNotFound), errors.Is(err, domain.ErrForbidden):
		return EligibilityCheck{}, err
	}
	return EligibilityCheck{}, err
}

// ManualPayoutEligibility produces the full admin-facing report explaining
// every blocked condition.
func (s *Service) ManualPayoutEligibility(ctx context.Context, actor Actor, eventID, userID uuid.UUID) (ManualEligibilityReport, error) {
	if actor.SubjectID == uuid.Nil {
		return ManualEligibilityReport{}, domain.ErrUnauthorized
	}
	if !actor.Admin() && !actor.System() {
		return ManualEligibilityReport{}, domain.ErrForbidden
	}
	fees, err := s.fees.Get(ctx, false)
	if err != nil {
		return ManualEligibilityReport{}, err
	}
	return s.validator.ManualPayoutEligibility(ctx, eventID, userID, fees)
}

type HistoryOutput struct {
	Items  []domain.Payout `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func (s *Service) GetPayoutHistory(ctx context.Context, actor Actor, query ports.HistoryQuery) (HistoryOutput, error) {
	if actor.SubjectID == uuid.Nil {
		return HistoryOutput{}, domain.ErrUnauthorized
	}
	if !actor.Admin() && !actor.System() {
		query.UserID = actor.SubjectID
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	items, total, err := s.payouts.List(ctx, query)
	if err != nil {
		return HistoryOutput{}, err
	}
	return HistoryOutput{Items: items, Total: total, Limit: query.Limit, Offset: query.Offset}, nil
}

func (s *Service) GetPayoutByID(ctx context.Context, actor Actor, payoutID uuid.UUID) (domain.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if err := s.authorize(actor, payout.UserID); err != nil {
		return domain.Payout{}, err
	}
	return payout, nil
}

func (s *Service) GetPayoutByEvent(ctx context.Context, actor Actor, eventID uuid.UUID) (domain.Payout, error) {
	payout, err := s.payouts.GetByEvent(ctx, eventID)
	if err != nil {
		return domain.Payout{}, err
	}
	if err := s.authorize(actor, payout.UserID); err != nil {
		return domain.Payout{}, err
	}
	return payout, nil
}

func (s *Service) authorize(actor Actor, ownerID uuid.UUID) error {
	if actor.SubjectID == uuid.Nil {
		return domain.ErrUnauthorized
	}
	if actor.Admin() || actor.System() {
		return nil
	}
	if actor.SubjectID != ownerID {
		return domain.ErrForbidden
	}
	return nil
}
