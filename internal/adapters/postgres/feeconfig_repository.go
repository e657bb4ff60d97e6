package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
)

type feeConfigRepository struct {
	db *gorm.DB
}

// Load reads the singleton fee schedule row. A missing row or a null in any
// critical column is a configuration fault, not a default: fees must never be
// silently computed from zero values.
func (r *feeConfigRepository) Load(ctx context.Context) (domain.FeeConfig, error) {
	var rec feeConfigModel
	if err := r.db.WithContext(ctx).Order("updated_at DESC").Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.FeeConfig{}, fmt.Errorf("fee config row absent: %w", domain.ErrConfigMissing)
		}
		return domain.FeeConfig{}, err
	}

	if rec.StripeRate == nil || rec.StripeFixedFee == nil || rec.MinPayoutAmount == nil {
		return domain.FeeConfig{}, fmt.Errorf("fee config has null critical columns: %w", domain.ErrConfigMissing)
	}

	cfg := domain.FeeConfig{
		ProcessorRate:     *rec.StripeRate,
		ProcessorFixedFee: *rec.StripeFixedFee,
		MinPayoutAmount:   *rec.MinPayoutAmount,
		LoadedAt:          rec.UpdatedAt,
	}
	if rec.PlatformRate != nil {
		cfg.PlatformRate = *rec.PlatformRate
	}
	if rec.PlatformFixedFee != nil {
		cfg.PlatformFixedFee = *rec.PlatformFixedFee
	}
	if rec.PlatformMinFee != nil {
		cfg.PlatformMinFee = *rec.PlatformMinFee
	}
	if rec.PlatformMaxFee != nil {
		cfg.PlatformMaxFee = *rec.PlatformMaxFee
	}
	if rec.MaxPayoutAmount != nil {
		cfg.MaxPayoutAmount = *rec.MaxPayoutAmount
	}
	return cfg, nil
}
