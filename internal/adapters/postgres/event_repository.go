package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

type eventRepository struct {
	db *gorm.DB
}

func (r *eventRepository) GetEvent(ctx context.Context, eventID uuid.UUID) (ports.EventRecord, error) {
	var rec eventModel
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.EventRecord{}, domain.ErrEventNotFound
		}
		return ports.EventRecord{}, err
	}
	return ports.EventRecord{
		EventID:   rec.EventID,
		OwnerID:   rec.OwnerID,
		Title:     rec.Title,
		EventDate: rec.EventDate,
		Canceled:  rec.CanceledAt != nil,
	}, nil
}

func (r *eventRepository) CountCardPayments(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("payments").
		Where("event_id = ?", eventID).
		Where("method = 'card'").
		Where("status = 'succeeded'").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// CalculateSales aggregates gross sales and the per-payment processor fee in
// one statement. The fee is floored per payment, matching how the processor
// assesses it, so the sum of rows equals the sum of fees actually charged.
func (r *eventRepository) CalculateSales(ctx context.Context, eventID uuid.UUID, processorRate float64, processorFixedFee int64) (ports.SalesAggregate, error) {
	var agg struct {
		GrossSales   int64
		ProcessorFee int64
		PaymentCount int
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(amount), 0)                                    AS gross_sales,
			COALESCE(SUM(FLOOR(amount * ?)::bigint + ?), 0)             AS processor_fee,
			COUNT(*)                                                    AS payment_count
		FROM payments
		WHERE event_id = ?
		  AND method = 'card'
		  AND status = 'succeeded'`,
		processorRate, processorFixedFee, eventID,
	).Scan(&agg).Error
	if err != nil {
		return ports.SalesAggregate{}, err
	}
	return ports.SalesAggregate{
		GrossSales:   agg.GrossSales,
		ProcessorFee: agg.ProcessorFee,
		PaymentCount: agg.PaymentCount,
	}, nil
}

// FindPayoutCandidates is the bulk discovery query: finished, non-canceled
// events past the waiting period with card sales at or above the minimum and
// no non-failed payout. Per-event account and amount checks run later; this
// query only has to be a superset of the truly eligible events.
func (r *eventRepository) FindPayoutCandidates(ctx context.Context, query ports.CandidateQuery) ([]domain.EligibleEvent, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	sql := `
		SELECT
			e.event_id,
			e.title,
			e.event_date,
			e.organizer_id,
			COUNT(p.payment_id)            AS paid_attendance,
			COALESCE(SUM(p.amount), 0)     AS card_sales_total
		FROM events e
		JOIN payments p
		  ON p.event_id = e.event_id
		 AND p.method = 'card'
		 AND p.status = 'succeeded'
		WHERE e.canceled_at IS NULL
		  AND e.event_date < NOW() - make_interval(days => ?)
		  AND NOT EXISTS (
			SELECT 1 FROM payouts po
			WHERE po.event_id = e.event_id
			  AND po.status <> 'failed'
		  )`
	args := []any{query.MinElapsedDays}
	if query.OwnerID != nil {
		sql += `
		  AND e.organizer_id = ?`
		args = append(args, *query.OwnerID)
	}
	sql += `
		GROUP BY e.event_id, e.title, e.event_date, e.organizer_id
		HAVING COALESCE(SUM(p.amount), 0) >= ?
		ORDER BY e.event_date ASC
		LIMIT ?`
	args = append(args, query.MinAmount, limit)

	var rows []struct {
		EventID        uuid.UUID
		Title          string
		EventDate      time.Time
		OrganizerID    uuid.UUID
		PaidAttendance int
		CardSalesTotal int64
	}
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.EligibleEvent, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.EligibleEvent{
			EventID:        row.EventID,
			Title:          row.Title,
			EventDate:      row.EventDate,
			OrganizerID:    row.OrganizerID,
			PaidAttendance: row.PaidAttendance,
			CardSalesTotal: row.CardSalesTotal,
		})
	}
	return result, nil
}
