package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

// ProcessPayout executes one payout end-to-end: validate, calculate, create
// the record atomically, move the money, finalize the status. The fee
// schedule is read once at the start and pinned for the whole call so the
// pre-create and post-create minimum checks can never disagree because of a
// cache refresh mid-flow.
func (s *Service) ProcessPayout(ctx context.Context, actor Actor, input ProcessPayoutInput) (domain.Payout, error) {
	if err := s.validator.ValidateProcessParams(input); err != nil {
		return domain.Payout{}, err
	}
	if err := s.authorize(actor, input.UserID); err != nil {
		return domain.Payout{}, err
	}
	if _, err := s.validator.ValidateEventEligibility(ctx, input.EventID, input.UserID); err != nil {
		return domain.Payout{}, err
	}
	account, err := s.validator.ValidateConnectAccount(ctx, input.UserID)
	if err != nil {
		return domain.Payout{}, err
	}

	fees, err := s.fees.Get(ctx, false)
	if err != nil {
		return domain.Payout{}, err
	}
	calc, err := s.CalculatePayoutAmount(ctx, input.EventID, fees)
	if err != nil {
		return domain.Payout{}, err
	}
	if err := s.validator.ValidateAmount(calc.NetAmount, fees); err != nil {
		return domain.Payout{}, err
	}

	now := s.nowFn()
	payout := domain.Payout{
		PayoutID:        uuid.New(),
		EventID:         input.EventID,
		UserID:          input.UserID,
		GrossSales:      calc.GrossSales,
		ProcessorFee:    calc.ProcessorFee,
		PlatformFee:     calc.PlatformFee,
		NetAmount:       calc.NetAmount,
		Status:          domain.PayoutStatusPending,
		StripeAccountID: account.AccountID,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.TransferGroup != "" {
		group := input.TransferGroup
		payout.TransferGroup = &group
	}

	created, err := s.payouts.CreateIfAbsent(ctx, payout)
	if err != nil {
		return domain.Payout{}, err
	}
	s.logger.InfoContext(ctx, "payout record created",
		"payout_id", created.PayoutID, "event_id", created.EventID,
		"net_amount", created.NetAmount, "request_id", actor.RequestID)

	// The persisted amount is re-checked against the same pinned schedule:
	// the record is authoritative from here on, and a mismatch means the
	// aggregation moved between calculation and insert.
	if created.NetAmount < fees.MinPayoutAmount {
		reason := fmt.Sprintf("net amount %d below minimum %d at creation", created.NetAmount, fees.MinPayoutAmount)
		if _, markErr := s.payouts.UpdateStatus(ctx, created.PayoutID, domain.PayoutStatusFailed, ports.StatusUpdate{LastError: &reason}); markErr != nil {
			return domain.Payout{}, &domain.TransferStateError{
				PayoutID:  created.PayoutID.String(),
				UpdateErr: markErr,
			}
		}
		return domain.Payout{}, fmt.Errorf("%w: %s", domain.ErrInsufficientBalance, reason)
	}

	// Account state may have changed between request and execution; check
	// once more immediately before money moves.
	if _, err := s.validator.ValidateConnectAccount(ctx, input.UserID); err != nil {
		reason := "account became unready before transfer: " + err.Error()
		_, markErr := s.payouts.UpdateStatus(ctx, created.PayoutID, domain.PayoutStatusFailed, ports.StatusUpdate{LastError: &reason})
		if markErr != nil {
			s.logger.ErrorContext(ctx, "failed to mark payout failed after account check",
				"payout_id", created.PayoutID, "error", markErr)
		}
		return domain.Payout{}, err
	}

	return s.executeTransfer(ctx, created, account)
}

// executeTransfer issues the external transfer for a persisted payout record
// and finalizes its status. Shared by the initial processing and retries.
func (s *Service) executeTransfer(ctx context.Context, payout domain.Payout, account domain.ConnectAccount) (domain.Payout, error) {
	group := ""
	if payout.TransferGroup != nil {
		group = *payout.TransferGroup
	}
	result, transferErr := s.transfers.CreateTransfer(ctx, ports.TransferRequest{
		PayoutID:      payout.PayoutID,
		Amount:        payout.NetAmount,
		Currency:      s.cfg.Currency,
		Destination:   account.AccountID,
		TransferGroup: group,
		Metadata: map[string]string{
			"payout_id": payout.PayoutID.String(),
			"event_id":  payout.EventID.String(),
			"user_id":   payout.UserID.String(),
		},
	})
	if transferErr != nil {
		s.metrics.PayoutProcessed("transfer_failed", 0)
		return domain.Payout{}, s.markTransferFailed(ctx, payout, transferErr)
	}

	updated, updateErr := s.payouts.UpdateStatus(ctx, payout.PayoutID, domain.PayoutStatusProcessing, ports.StatusUpdate{
		TransferID:    &result.TransferID,
		MarkProcessed: true,
	})
	if updateErr == nil {
		s.metrics.PayoutProcessed("success", updated.NetAmount)
		s.logger.InfoContext(ctx, "transfer created",
			"payout_id", payout.PayoutID, "transfer_id", result.TransferID,
			"amount", payout.NetAmount, "retries", result.Retries, "rate_limited", result.RateLimited)
		return updated, nil
	}

	if errors.Is(updateErr, domain.ErrInvalidStatusTransition) {
		// An asynchronous confirmation may have advanced the record past
		// processing while the transfer call was in flight. Re-read before
		// treating this as a failure.
		current, readErr := s.payouts.GetByID(ctx, payout.PayoutID)
		if readErr == nil && current.Status == domain.PayoutStatusCompleted {
			s.metrics.PayoutProcessed("success", current.NetAmount)
			s.logger.InfoContext(ctx, "payout already completed by confirmation",
				"payout_id", payout.PayoutID, "transfer_id", result.TransferID)
			return current, nil
		}
	}

	// The money moved but the normal bookkeeping write failed. Record the
	// degraded state so reconciliation can recover it; if even that write
	// fails there is real money with no durable local record, which must
	// surface as a compound error.
	reason := "transfer succeeded but status update failed: " + updateErr.Error()
	_, fallbackErr := s.payouts.UpdateStatus(ctx, payout.PayoutID, domain.PayoutStatusProcessingError, ports.StatusUpdate{
		TransferID: &result.TransferID,
		LastError:  &reason,
	})
	if fallbackErr != nil {
		s.metrics.PayoutProcessed("state_divergence", 0)
		return domain.Payout{}, &domain.TransferStateError{
			PayoutID:    payout.PayoutID.String(),
			TransferID:  result.TransferID,
			UpdateErr:   updateErr,
			FallbackErr: fallbackErr,
		}
	}
	s.metrics.PayoutProcessed("processing_error", 0)
	s.logger.ErrorContext(ctx, "payout parked in processing_error",
		"payout_id", payout.PayoutID, "transfer_id", result.TransferID, "error", updateErr)
	return domain.Payout{}, fmt.Errorf("transfer %s recorded as processing_error: %w", result.TransferID, updateErr)
}

func (s *Service) markTransferFailed(ctx context.Context, payout domain.Payout, transferErr error) error {
	reason := transferErr.Error()
	if _, markErr := s.payouts.UpdateStatus(ctx, payout.PayoutID, domain.PayoutStatusFailed, ports.StatusUpdate{
		LastError:      &reason,
		IncrementRetry: true,
	}); markErr != nil {
		return &domain.TransferStateError{
			PayoutID:    payout.PayoutID.String(),
			TransferErr: transferErr,
			UpdateErr:   markErr,
		}
	}
	s.logger.WarnContext(ctx, "transfer failed",
		"payout_id", payout.PayoutID, "event_id", payout.EventID, "error", transferErr)
	return transferErr
}

// RetryPayout re-enters the state machine for a failed or stuck payout. The
// transfer client derives the same idempotency key from the same inputs, so
// a retry after a transfer that actually succeeded server-side is a no-op at
// the processor rather than a second transfer.
func (s *Service) RetryPayout(ctx context.Context, actor Actor, payoutID uuid.UUID) (domain.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if err := s.authorize(actor, payout.UserID); err != nil {
		return domain.Payout{}, err
	}
	if !payout.Retryable() {
		return domain.Payout{}, fmt.Errorf("%w: retry from %s", domain.ErrInvalidStatusTransition, payout.Status)
	}

	account, err := s.validator.ValidateConnectAccount(ctx, payout.UserID)
	if err != nil {
		return domain.Payout{}, err
	}

	// A payout parked in processing_error already has a confirmed transfer;
	// reconcile the record instead of re-sending money.
	if payout.Status == domain.PayoutStatusProcessingError && payout.StripeTransferID != nil {
		if _, err := s.transfers.GetTransfer(ctx, *payout.StripeTransferID); err == nil {
			return s.payouts.UpdateStatus(ctx, payout.PayoutID, domain.PayoutStatusProcessing, ports.StatusUpdate{
				TransferID:    payout.StripeTransferID,
				MarkProcessed: true,
			})
		}
	}

	updated, err := s.payouts.UpdateStatus(ctx, payout.PayoutID, domain.PayoutStatusProcessing, ports.StatusUpdate{
		IncrementRetry: true,
	})
	if err != nil {
		return domain.Payout{}, err
	}
	s.logger.InfoContext(ctx, "payout retry started",
		"payout_id", payout.PayoutID, "retry_count", updated.RetryCount, "request_id", actor.RequestID)
	return s.executeTransfer(ctx, updated, account)
}

// CancelTransfer reverses the transfer of a payout still in processing. The
// processor does not support cancelling an issued transfer, so compensation
// is a reversal followed by marking the payout failed.
func (s *Service) CancelTransfer(ctx context.Context, actor Actor, payoutID uuid.UUID) (domain.Payout, error) {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if err := s.authorize(actor, payout.UserID); err != nil {
		return domain.Payout{}, err
	}
	if payout.Status != domain.PayoutStatusProcessing {
		return domain.Payout{}, fmt.Errorf("%w: cancel from %s", domain.ErrInvalidStatusTransition, payout.Status)
	}
	if payout.StripeTransferID == nil {
		return domain.Payout{}, fmt.Errorf("%w: payout has no transfer to reverse", domain.ErrInvalidInput)
	}

	reversal, err := s.transfers.CancelTransfer(ctx, *payout.StripeTransferID)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("reverse transfer %s: %w", *payout.StripeTransferID, err)
	}
	reason := "transfer reversed: " + reversal.ReversalID
	updated, err := s.payouts.UpdateStatus(ctx, payout.PayoutID, domain.PayoutStatusFailed, ports.StatusUpdate{LastError: &reason})
	if err != nil {
		return domain.Payout{}, &domain.TransferStateError{
			PayoutID:   payout.PayoutID.String(),
			TransferID: *payout.StripeTransferID,
			UpdateErr:  err,
		}
	}
	s.logger.InfoContext(ctx, "transfer reversed",
		"payout_id", payout.PayoutID, "reversal_id", reversal.ReversalID, "request_id", actor.RequestID)
	return updated, nil
}
