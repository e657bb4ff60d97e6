package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/observability"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

// Scheduler discovers eligible events across the platform and drives the
// payout service with bounded parallelism, persisting an execution log for
// every run including dry runs and runs that fail outright.
type Scheduler struct {
	cfg     Config
	logger  *slog.Logger
	service *Service
	events  ports.EventRepository
	logs    ports.SchedulerLogRepository
	metrics *observability.Metrics
	nowFn   func() time.Time
}

type SchedulerDependencies struct {
	Logger  *slog.Logger
	Service *Service
	Events  ports.EventRepository
	Logs    ports.SchedulerLogRepository
	Metrics *observability.Metrics
}

func NewScheduler(deps SchedulerDependencies) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     deps.Service.cfg,
		logger:  logger,
		service: deps.Service,
		events:  deps.Events,
		logs:    deps.Logs,
		metrics: deps.Metrics,
		nowFn:   deps.Service.nowFn,
	}
}

type SchedulerOptions struct {
	DryRun         bool
	Limit          int
	MaxConcurrency int
	BatchDelay     time.Duration
}

func (o SchedulerOptions) withDefaults(cfg Config) SchedulerOptions {
	if o.Limit <= 0 {
		o.Limit = cfg.CandidateLimit
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = cfg.MaxConcurrency
	}
	if o.BatchDelay <= 0 {
		o.BatchDelay = cfg.BatchDelay
	}
	return o
}

// EligibleEventsReport is the detailed discovery result: candidates split
// into eligible (with estimated amounts) and ineligible (with reasons).
type EligibleEventsReport struct {
	Eligible          []domain.EligibleEvent   `json:"eligible"`
	Ineligible        []domain.IneligibleEvent `json:"ineligible"`
	TotalCandidates   int                      `json:"total_candidates"`
	TotalEstimatedNet int64                    `json:"total_estimated_net"`
}

// FindEligibleEventsWithDetails takes the bulk SQL candidate list and layers
// the per-event checks the bulk query cannot express cheaply: account
// readiness, a fresh eligibility re-check and a fresh amount calculation.
func (s *Scheduler) FindEligibleEventsWithDetails(ctx context.Context, opts SchedulerOptions) (EligibleEventsReport, error) {
	opts = opts.withDefaults(s.cfg)

	fees, err := s.service.fees.Get(ctx, false)
	if err != nil {
		return EligibleEventsReport{}, err
	}
	candidates, err := s.events.FindPayoutCandidates(ctx, ports.CandidateQuery{
		MinElapsedDays: s.cfg.MinElapsedDays,
		MinAmount:      fees.MinPayoutAmount,
		Limit:          opts.Limit,
	})
	if err != nil {
		return EligibleEventsReport{}, fmt.Errorf("find payout candidates: %w", err)
	}

	report := EligibleEventsReport{TotalCandidates: len(candidates)}
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		reason, details, estimated := s.deepCheck(ctx, candidate, fees)
		if reason != "" {
			report.Ineligible = append(report.Ineligible, domain.IneligibleEvent{
				Event:   candidate,
				Reason:  reason,
				Details: details,
			})
			continue
		}
		candidate.EstimatedNet = estimated
		report.Eligible = append(report.Eligible, candidate)
		report.TotalEstimatedNet += estimated
	}
	return report, nil
}

// deepCheck re-derives the per-event conditions. Returning an empty reason
// means the event passed; any repository failure is reported as a reason so
// one broken event cannot abort discovery.
func (s *Scheduler) deepCheck(ctx context.Context, candidate domain.EligibleEvent, fees domain.FeeConfig) (reason string, details map[string]any, estimatedNet int64) {
	if _, err := s.service.validator.ValidateConnectAccount(ctx, candidate.OrganizerID); err != nil {
		var eligErr *domain.EligibilityError
		if errors.As(err, &eligErr) {
			return eligErr.Reason, eligErr.Details, 0
		}
		return "account_lookup_failed", map[string]any{"error": err.Error()}, 0
	}
	if _, err := s.service.validator.ValidateEventEligibility(ctx, candidate.EventID, candidate.OrganizerID); err != nil {
		var eligErr *domain.EligibilityError
		switch {
		case errors.As(err, &eligErr):
			return eligErr.Reason, eligErr.Details, 0
		case errors.Is(err, domain.ErrPayoutAlreadyExists):
			return "payout_exists", nil, 0
		default:
			return "eligibility_check_failed", map[string]any{"error": err.Error()}, 0
		}
	}
	calc, err := s.service.CalculatePayoutAmount(ctx, candidate.EventID, fees)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return "below_minimum", map[string]any{"net_amount": calc.NetAmount, "minimum": fees.MinPayoutAmount}, 0
		}
		return "calculation_failed", map[string]any{"error": err.Error()}, 0
	}
	return "", nil, calc.NetAmount
}

// ExecuteScheduledPayouts runs one batch cycle. In dry-run mode nothing is
// transferred and no payout records are created; live mode processes events
// in batches of MaxConcurrency with an inter-batch delay so a burst of
// transfers does not trip the processor's rate limits. Each event's failure
// is isolated. The execution log is persisted regardless of outcome.
func (s *Scheduler) ExecuteScheduledPayouts(ctx context.Context, opts SchedulerOptions) (domain.SchedulerExecutionResult, error) {
	opts = opts.withDefaults(s.cfg)
	result := domain.SchedulerExecutionResult{
		ExecutionID: uuid.New(),
		StartedAt:   s.nowFn(),
		DryRun:      opts.DryRun,
	}

	report, err := s.FindEligibleEventsWithDetails(ctx, opts)
	if err != nil {
		result.Error = err.Error()
		result.FinishedAt = s.nowFn()
		s.persistLog(ctx, result)
		s.metrics.SchedulerRun("error")
		return result, err
	}
	result.EligibleCount = len(report.Eligible)

	if opts.DryRun {
		for _, event := range report.Eligible {
			result.Results = append(result.Results, domain.EventPayoutResult{
				EventID: event.EventID,
				UserID:  event.OrganizerID,
				Amount:  event.EstimatedNet,
				Reason:  "dry_run",
			})
		}
		result.FinishedAt = s.nowFn()
		s.persistLog(ctx, result)
		s.metrics.SchedulerRun("dry_run")
		s.logger.InfoContext(ctx, "scheduler dry run finished",
			"execution_id", result.ExecutionID, "eligible", result.EligibleCount)
		return result, nil
	}

	actor := Actor{SubjectID: result.ExecutionID, Role: "system", RequestID: "scheduler:" + result.ExecutionID.String()}
	var mu sync.Mutex
	for start := 0; start < len(report.Eligible); start += opts.MaxConcurrency {
		end := start + opts.MaxConcurrency
		if end > len(report.Eligible) {
			end = len(report.Eligible)
		}
		var wg sync.WaitGroup
		for _, event := range report.Eligible[start:end] {
			wg.Add(1)
			go func(event domain.EligibleEvent) {
				defer wg.Done()
				outcome := s.processOne(ctx, actor, event)
				mu.Lock()
				result.Results = append(result.Results, outcome)
				if outcome.Success {
					result.SuccessCount++
					result.TotalAmount += outcome.Amount
				} else {
					result.FailureCount++
				}
				mu.Unlock()
			}(event)
		}
		wg.Wait()

		if end < len(report.Eligible) {
			select {
			case <-ctx.Done():
				result.Error = ctx.Err().Error()
				result.FinishedAt = s.nowFn()
				s.persistLog(ctx, result)
				s.metrics.SchedulerRun("canceled")
				return result, ctx.Err()
			case <-time.After(opts.BatchDelay):
			}
		}
	}

	result.FinishedAt = s.nowFn()
	s.persistLog(ctx, result)
	s.metrics.SchedulerRun("completed")
	s.logger.InfoContext(ctx, "scheduler run finished",
		"execution_id", result.ExecutionID,
		"eligible", result.EligibleCount,
		"succeeded", result.SuccessCount,
		"failed", result.FailureCount,
		"total_amount", result.TotalAmount)
	return result, nil
}

func (s *Scheduler) processOne(ctx context.Context, actor Actor, event domain.EligibleEvent) domain.EventPayoutResult {
	payout, err := s.service.ProcessPayout(ctx, actor, ProcessPayoutInput{
		EventID: event.EventID,
		UserID:  event.OrganizerID,
		Notes:   "scheduled payout",
	})
	if err != nil {
		meta := domain.Classify(err)
		s.logger.LogAttrs(ctx, meta.Severity, "scheduled payout failed",
			slog.String("event_id", event.EventID.String()),
			slog.String("error", err.Error()),
			slog.Bool("page_operator", meta.PageOperator))
		return domain.EventPayoutResult{
			EventID: event.EventID,
			UserID:  event.OrganizerID,
			Reason:  err.Error(),
		}
	}
	id := payout.PayoutID
	return domain.EventPayoutResult{
		EventID:  event.EventID,
		UserID:   event.OrganizerID,
		PayoutID: &id,
		Amount:   payout.NetAmount,
		Success:  true,
	}
}

// persistLog writes the execution record; a logging failure is itself logged
// but never masks the run outcome.
func (s *Scheduler) persistLog(ctx context.Context, result domain.SchedulerExecutionResult) {
	if err := s.logs.Insert(ctx, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist scheduler execution log",
			"execution_id", result.ExecutionID, "error", err)
	}
}

func (s *Scheduler) GetExecutionHistory(ctx context.Context, query ports.SchedulerLogQuery) ([]domain.SchedulerExecutionResult, int, error) {
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return s.logs.List(ctx, query)
}

// CleanupOldLogs prunes execution logs past the retention window.
func (s *Scheduler) CleanupOldLogs(ctx context.Context) (int64, error) {
	cutoff := s.nowFn().Add(-s.cfg.LogRetention)
	deleted, err := s.logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "pruned scheduler execution logs", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
