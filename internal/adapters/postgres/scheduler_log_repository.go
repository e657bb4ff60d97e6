package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

type schedulerLogRepository struct {
	db *gorm.DB
}

func (r *schedulerLogRepository) Insert(ctx context.Context, result domain.SchedulerExecutionResult) error {
	rec, err := toSchedulerLogModel(result)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *schedulerLogRepository) List(ctx context.Context, query ports.SchedulerLogQuery) ([]domain.SchedulerExecutionResult, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&schedulerLogModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []schedulerLogModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	result := make([]domain.SchedulerExecutionResult, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainSchedulerLog(row))
	}
	return result, int(total), nil
}

func (r *schedulerLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&schedulerLogModel{})
	return res.RowsAffected, res.Error
}
