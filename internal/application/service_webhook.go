package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

// ConfirmTransfer handles the asynchronous settlement confirmation from the
// processor, advancing processing (or processing_error) to completed. The
// webhook event id is deduplicated so redelivered events are no-ops, and an
// already-completed record is treated as success rather than a conflict.
func (s *Service) ConfirmTransfer(ctx context.Context, webhookEventID string, payoutID uuid.UUID, transferID string) error {
	dup, err := s.dedup.IsDuplicate(ctx, webhookEventID)
	if err != nil {
		return fmt.Errorf("webhook dedup check: %w", err)
	}
	if dup {
		return nil
	}

	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return err
	}
	if payout.StripeTransferID != nil && *payout.StripeTransferID != transferID {
		return fmt.Errorf("%w: confirmation for transfer %s but payout %s records %s",
			domain.ErrInvalidInput, transferID, payoutID, *payout.StripeTransferID)
	}

	// processing_error means the transfer was real but bookkeeping lagged;
	// the confirmation is exactly the reconciliation signal we were waiting
	// for, so it may complete from there as well.
	if payout.Status == domain.PayoutStatusProcessingError {
		if _, err := s.payouts.UpdateStatus(ctx, payoutID, domain.PayoutStatusProcessing, ports.StatusUpdate{
			TransferID: &transferID,
		}); err != nil && !errors.Is(err, domain.ErrInvalidStatusTransition) {
			return err
		}
	}

	if _, err := s.payouts.UpdateStatus(ctx, payoutID, domain.PayoutStatusCompleted, ports.StatusUpdate{
		TransferID:    &transferID,
		MarkProcessed: true,
	}); err != nil {
		if errors.Is(err, domain.ErrInvalidStatusTransition) {
			current, readErr := s.payouts.GetByID(ctx, payoutID)
			if readErr == nil && current.Status == domain.PayoutStatusCompleted {
				return s.dedup.MarkProcessed(ctx, webhookEventID, "transfer.confirmed", s.cfg.WebhookDedupTTL)
			}
		}
		return err
	}

	s.logger.InfoContext(ctx, "payout completed by confirmation",
		"payout_id", payoutID, "transfer_id", transferID, "webhook_event_id", webhookEventID)
	return s.dedup.MarkProcessed(ctx, webhookEventID, "transfer.confirmed", s.cfg.WebhookDedupTTL)
}

// HandleTransferReversed records an out-of-band reversal reported by the
// processor. A completed payout cannot silently un-complete; reversals after
// completion are surfaced for manual review instead of mutated away.
func (s *Service) HandleTransferReversed(ctx context.Context, webhookEventID string, payoutID uuid.UUID, transferID string) error {
	dup, err := s.dedup.IsDuplicate(ctx, webhookEventID)
	if err != nil {
		return fmt.Errorf("webhook dedup check: %w", err)
	}
	if dup {
		return nil
	}

	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return err
	}
	if payout.Status == domain.PayoutStatusCompleted {
		s.logger.ErrorContext(ctx, "reversal received for completed payout, manual review required",
			"payout_id", payoutID, "transfer_id", transferID)
		return s.dedup.MarkProcessed(ctx, webhookEventID, "transfer.reversed", s.cfg.WebhookDedupTTL)
	}

	// processing_error cannot fail directly; route it through processing so
	// the transition table stays the single source of truth.
	if payout.Status == domain.PayoutStatusProcessingError {
		if _, err := s.payouts.UpdateStatus(ctx, payoutID, domain.PayoutStatusProcessing, ports.StatusUpdate{}); err != nil && !errors.Is(err, domain.ErrInvalidStatusTransition) {
			return err
		}
	}
	reason := "transfer reversed at processor: " + transferID
	if _, err := s.payouts.UpdateStatus(ctx, payoutID, domain.PayoutStatusFailed, ports.StatusUpdate{LastError: &reason}); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "payout failed by reversal",
		"payout_id", payoutID, "transfer_id", transferID, "webhook_event_id", webhookEventID)
	return s.dedup.MarkProcessed(ctx, webhookEventID, "transfer.reversed", s.cfg.WebhookDedupTTL)
}
