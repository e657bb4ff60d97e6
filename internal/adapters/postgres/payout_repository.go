package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

type payoutRepository struct {
	db *gorm.DB
}

// CreateIfAbsent relies on the partial unique index over (event_id, user_id)
// for non-failed rows: the insert and the duplicate check are one atomic
// statement, so two concurrent callers cannot both create an active payout.
func (r *payoutRepository) CreateIfAbsent(ctx context.Context, payout domain.Payout) (domain.Payout, error) {
	rec := toPayoutModel(payout)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Payout{}, fmt.Errorf("payout for event %s: %w", payout.EventID, domain.ErrPayoutAlreadyExists)
		}
		return domain.Payout{}, err
	}
	return toDomainPayout(rec), nil
}

// UpdateStatus performs the transition as a single conditional UPDATE whose
// WHERE clause lists the statuses allowed to move to next. Zero rows affected
// means either the record is gone, the transition is illegal, or the row is
// already in the target state; the follow-up read distinguishes the three.
func (r *payoutRepository) UpdateStatus(ctx context.Context, payoutID uuid.UUID, next domain.PayoutStatus, update ports.StatusUpdate) (domain.Payout, error) {
	if !next.Valid() {
		return domain.Payout{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidStatusTransition, next)
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"status":     string(next),
		"updated_at": now,
	}
	if update.TransferID != nil {
		fields["stripe_transfer_id"] = *update.TransferID
	}
	if update.LastError != nil {
		fields["last_error"] = *update.LastError
	}
	if update.IncrementRetry {
		fields["retry_count"] = gorm.Expr("retry_count + 1")
	}
	if update.MarkProcessed {
		fields["processed_at"] = now
	}

	res := r.db.WithContext(ctx).
		Model(&payoutModel{}).
		Where("payout_id = ?", payoutID).
		Where("status IN ?", statusesAllowing(next)).
		Updates(fields)
	if res.Error != nil {
		return domain.Payout{}, res.Error
	}

	current, err := r.GetByID(ctx, payoutID)
	if err != nil {
		return domain.Payout{}, err
	}
	if res.RowsAffected == 0 && current.Status != next {
		return current, fmt.Errorf("payout %s: %s -> %s: %w",
			payoutID, current.Status, next, domain.ErrInvalidStatusTransition)
	}
	return current, nil
}

// statusesAllowing lists every status permitted to move to next, including
// next itself so a same-state update stays an idempotent no-op.
func statusesAllowing(next domain.PayoutStatus) []string {
	all := []domain.PayoutStatus{
		domain.PayoutStatusPending,
		domain.PayoutStatusProcessing,
		domain.PayoutStatusCompleted,
		domain.PayoutStatusFailed,
		domain.PayoutStatusProcessingError,
	}
	var from []string
	for _, s := range all {
		if s.CanTransitionTo(next) {
			from = append(from, string(s))
		}
	}
	return from
}

func (r *payoutRepository) GetByID(ctx context.Context, payoutID uuid.UUID) (domain.Payout, error) {
	var rec payoutModel
	if err := r.db.WithContext(ctx).Where("payout_id = ?", payoutID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payout{}, domain.ErrPayoutNotFound
		}
		return domain.Payout{}, err
	}
	return toDomainPayout(rec), nil
}

// GetByEvent returns the most recent active payout for the event. Failed
// payouts do not count as existing; they can be superseded by a new attempt.
func (r *payoutRepository) GetByEvent(ctx context.Context, eventID uuid.UUID) (domain.Payout, error) {
	var rec payoutModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("status <> ?", string(domain.PayoutStatusFailed)).
		Order("created_at DESC").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payout{}, domain.ErrPayoutNotFound
		}
		return domain.Payout{}, err
	}
	return toDomainPayout(rec), nil
}

func (r *payoutRepository) List(ctx context.Context, query ports.HistoryQuery) ([]domain.Payout, int, error) {
	q := r.db.WithContext(ctx).Model(&payoutModel{})
	if query.UserID != uuid.Nil {
		q = q.Where("user_id = ?", query.UserID)
	}
	if query.EventID != uuid.Nil {
		q = q.Where("event_id = ?", query.EventID)
	}
	if query.Status != "" {
		q = q.Where("status = ?", string(query.Status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []payoutModel
	if err := q.Order("created_at DESC").
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	result := make([]domain.Payout, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainPayout(row))
	}
	return result, int(total), nil
}
