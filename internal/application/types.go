package application

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rytkhs/event-pay-sub006/internal/observability"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

type Config struct {
	ServiceName       string
	Currency          string
	OrganizerTimezone string
	MinElapsedDays    int
	NotesMaxLength    int
	FeeCacheTTL       time.Duration
	MaxConcurrency    int
	BatchDelay        time.Duration
	CandidateLimit    int
	LogRetention      time.Duration
	WebhookDedupTTL   time.Duration
}

type Actor struct {
	SubjectID uuid.UUID
	Role      string
	RequestID string
}

func (a Actor) Admin() bool  { return a.Role == "admin" }
func (a Actor) System() bool { return a.Role == "system" }

type ProcessPayoutInput struct {
	EventID       uuid.UUID
	UserID        uuid.UUID
	Notes         string
	TransferGroup string
}

type Service struct {
	cfg       Config
	logger    *slog.Logger
	payouts   ports.PayoutRepository
	events    ports.EventRepository
	accounts  ports.ConnectAccountReader
	transfers ports.TransferClient
	dedup     ports.EventDedupStore
	fees      *FeeConfigService
	validator *Validator
	metrics   *observability.Metrics
	nowFn     func() time.Time
}

type Dependencies struct {
	Config    Config
	Logger    *slog.Logger
	Payouts   ports.PayoutRepository
	Events    ports.EventRepository
	Accounts  ports.ConnectAccountReader
	Transfers ports.TransferClient
	Dedup     ports.EventDedupStore
	FeeConfig ports.FeeConfigRepository
	Metrics   *observability.Metrics
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "payout-engine"
	}
	if cfg.Currency == "" {
		cfg.Currency = "jpy"
	}
	if cfg.OrganizerTimezone == "" {
		cfg.OrganizerTimezone = "Asia/Tokyo"
	}
	if cfg.MinElapsedDays <= 0 {
		cfg.MinElapsedDays = 5
	}
	if cfg.NotesMaxLength <= 0 {
		cfg.NotesMaxLength = 500
	}
	if cfg.FeeCacheTTL <= 0 {
		cfg.FeeCacheTTL = 10 * time.Minute
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 3
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = time.Second
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 50
	}
	if cfg.LogRetention <= 0 {
		cfg.LogRetention = 30 * 24 * time.Hour
	}
	if cfg.WebhookDedupTTL <= 0 {
		cfg.WebhookDedupTTL = 72 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := func() time.Time { return time.Now().UTC() }
	fees := NewFeeConfigService(deps.FeeConfig, cfg.FeeCacheTTL)
	validator := &Validator{
		cfg:      cfg,
		events:   deps.Events,
		payouts:  deps.Payouts,
		accounts: deps.Accounts,
		nowFn:    nowFn,
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		payouts:   deps.Payouts,
		events:    deps.Events,
		accounts:  deps.Accounts,
		transfers: deps.Transfers,
		dedup:     deps.Dedup,
		fees:      fees,
		validator: validator,
		metrics:   deps.Metrics,
		nowFn:     nowFn,
	}
}

// Validator exposes the rule engine for callers that need eligibility checks
// without the full service surface.
func (s *Service) Validator() *Validator { return s.validator }

// FeeConfig exposes the cached fee schedule service.
func (s *Service) FeeConfig() *FeeConfigService { return s.fees }
