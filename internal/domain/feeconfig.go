package domain

import "time"

// FeeConfig is the platform fee schedule. Rates are fractions, fixed fees and
// bounds are integer JPY. The processor and minimum-payout fields have no safe
// default; their absence in storage is a fatal configuration error.
type FeeConfig struct {
	ProcessorRate     float64   `json:"processor_rate"`
	ProcessorFixedFee int64     `json:"processor_fixed_fee"`
	PlatformRate      float64   `json:"platform_rate"`
	PlatformFixedFee  int64     `json:"platform_fixed_fee"`
	PlatformMinFee    int64     `json:"platform_min_fee"`
	PlatformMaxFee    int64     `json:"platform_max_fee"`
	MinPayoutAmount   int64     `json:"min_payout_amount"`
	MaxPayoutAmount   int64     `json:"max_payout_amount"`
	LoadedAt          time.Time `json:"loaded_at"`
}

// PlatformFeeFor computes the platform fee for a gross amount, clamped to the
// configured [min, max] band. A zero max means no upper bound.
func (c FeeConfig) PlatformFeeFor(gross int64) int64 {
	fee := int64(float64(gross)*c.PlatformRate) + c.PlatformFixedFee
	if fee < c.PlatformMinFee {
		fee = c.PlatformMinFee
	}
	if c.PlatformMaxFee > 0 && fee > c.PlatformMaxFee {
		fee = c.PlatformMaxFee
	}
	return fee
}
