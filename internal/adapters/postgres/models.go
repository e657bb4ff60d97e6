package postgres

import (
	"time"

	"github.com/google/uuid"
)

type payoutModel struct {
	PayoutID         uuid.UUID  `gorm:"column:payout_id;type:uuid;primaryKey"`
	EventID          uuid.UUID  `gorm:"column:event_id"`
	UserID           uuid.UUID  `gorm:"column:user_id"`
	GrossSales       int64      `gorm:"column:total_gross_sales"`
	ProcessorFee     int64      `gorm:"column:total_stripe_fee"`
	PlatformFee      int64      `gorm:"column:platform_fee"`
	NetAmount        int64      `gorm:"column:payout_amount"`
	Status           string     `gorm:"column:status"`
	StripeTransferID *string    `gorm:"column:stripe_transfer_id"`
	StripeAccountID  string     `gorm:"column:stripe_account_id"`
	TransferGroup    *string    `gorm:"column:transfer_group"`
	RetryCount       int        `gorm:"column:retry_count"`
	LastError        *string    `gorm:"column:last_error"`
	Notes            string     `gorm:"column:notes"`
	ProcessedAt      *time.Time `gorm:"column:processed_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (payoutModel) TableName() string { return "payouts" }

type feeConfigModel struct {
	ID               int       `gorm:"column:id;primaryKey"`
	StripeRate       *float64  `gorm:"column:stripe_rate"`
	StripeFixedFee   *int64    `gorm:"column:stripe_fixed_fee"`
	PlatformRate     *float64  `gorm:"column:platform_rate"`
	PlatformFixedFee *int64    `gorm:"column:platform_fixed_fee"`
	PlatformMinFee   *int64    `gorm:"column:platform_min_fee"`
	PlatformMaxFee   *int64    `gorm:"column:platform_max_fee"`
	MinPayoutAmount  *int64    `gorm:"column:min_payout_amount"`
	MaxPayoutAmount  *int64    `gorm:"column:max_payout_amount"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (feeConfigModel) TableName() string { return "payout_fee_config" }

type eventModel struct {
	EventID    uuid.UUID  `gorm:"column:event_id;type:uuid;primaryKey"`
	OwnerID    uuid.UUID  `gorm:"column:organizer_id"`
	Title      string     `gorm:"column:title"`
	EventDate  time.Time  `gorm:"column:event_date"`
	CanceledAt *time.Time `gorm:"column:canceled_at"`
}

func (eventModel) TableName() string { return "events" }

type connectAccountModel struct {
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	StripeAccountID string    `gorm:"column:stripe_account_id"`
	Verified        bool      `gorm:"column:verified"`
	PayoutsEnabled  bool      `gorm:"column:payouts_enabled"`
	DefaultCurrency string    `gorm:"column:default_currency"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (connectAccountModel) TableName() string { return "stripe_connect_accounts" }

type schedulerLogModel struct {
	ExecutionID   uuid.UUID `gorm:"column:execution_id;type:uuid;primaryKey"`
	StartedAt     time.Time `gorm:"column:started_at"`
	FinishedAt    time.Time `gorm:"column:finished_at"`
	DryRun        bool      `gorm:"column:dry_run"`
	EligibleCount int       `gorm:"column:eligible_events_count"`
	SuccessCount  int       `gorm:"column:successful_payouts"`
	FailureCount  int       `gorm:"column:failed_payouts"`
	TotalAmount   int64     `gorm:"column:total_amount"`
	Results       string    `gorm:"column:results;type:jsonb"`
	Error         *string   `gorm:"column:error"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (schedulerLogModel) TableName() string { return "payout_scheduler_logs" }
