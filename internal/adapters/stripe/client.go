// Package stripe adapts the Stripe Connect transfer API to the engine's
// transfer client port: deterministic idempotency keys, bounded retry with
// exponential backoff and error classification into the domain taxonomy.
package stripe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/transfer"
	"github.com/stripe/stripe-go/v82/transferreversal"

	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/observability"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

const (
	defaultMaxAttempts = 3
	defaultBaseBackoff = 500 * time.Millisecond
	maxBackoff         = 8 * time.Second
)

// transferAPI is the slice of the Stripe SDK the client touches. Tests swap
// it for a scripted fake; production uses the package-level SDK bindings.
type transferAPI interface {
	NewTransfer(params *stripeapi.TransferParams) (*stripeapi.Transfer, error)
	GetTransfer(id string, params *stripeapi.TransferParams) (*stripeapi.Transfer, error)
	NewReversal(params *stripeapi.TransferReversalParams) (*stripeapi.TransferReversal, error)
}

type sdkAPI struct{}

func (sdkAPI) NewTransfer(params *stripeapi.TransferParams) (*stripeapi.Transfer, error) {
	return transfer.New(params)
}

func (sdkAPI) GetTransfer(id string, params *stripeapi.TransferParams) (*stripeapi.Transfer, error) {
	return transfer.Get(id, params)
}

func (sdkAPI) NewReversal(params *stripeapi.TransferReversalParams) (*stripeapi.TransferReversal, error) {
	return transferreversal.New(params)
}

type Config struct {
	APIKey      string
	MaxAttempts int
	BaseBackoff time.Duration
}

// Client implements ports.TransferClient over Stripe Connect transfers.
type Client struct {
	api         transferAPI
	logger      *slog.Logger
	metrics     *observability.Metrics
	maxAttempts int
	baseBackoff time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if cfg.APIKey != "" {
		stripeapi.Key = cfg.APIKey
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:         sdkAPI{},
		logger:      logger,
		metrics:     metrics,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// idempotencyKey derives the same key for every attempt at the same logical
// transfer, so Stripe collapses client retries and process restarts into one
// transfer object.
func idempotencyKey(req ports.TransferRequest) string {
	sum := sha256.Sum256([]byte(req.PayoutID.String() + "|" + req.Destination + "|" + req.TransferGroup))
	return "po-tr-" + hex.EncodeToString(sum[:])[:32]
}

func validateRequest(req ports.TransferRequest) error {
	if req.Amount <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive, got %d", domain.ErrInvalidInput, req.Amount)
	}
	if !strings.HasPrefix(req.Destination, "acct_") {
		return fmt.Errorf("%w: destination %q is not a connected account id", domain.ErrInvalidInput, req.Destination)
	}
	for _, key := range []string{"payout_id", "event_id", "user_id"} {
		if req.Metadata[key] == "" {
			return fmt.Errorf("%w: transfer metadata missing %q", domain.ErrInvalidInput, key)
		}
	}
	return nil
}

// CreateTransfer sends the transfer with a deterministic idempotency key and
// retries transient failures up to maxAttempts. Non-retryable failures are
// translated into domain errors and returned on the first occurrence.
func (c *Client) CreateTransfer(ctx context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	if err := validateRequest(req); err != nil {
		return ports.TransferResult{}, err
	}

	params := &stripeapi.TransferParams{
		Amount:      stripeapi.Int64(req.Amount),
		Currency:    stripeapi.String(req.Currency),
		Destination: stripeapi.String(req.Destination),
		Metadata:    req.Metadata,
	}
	if req.TransferGroup != "" {
		params.TransferGroup = stripeapi.String(req.TransferGroup)
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey(req))

	result := ports.TransferResult{Destination: req.Destination}
	started := time.Now()
	defer func() {
		c.metrics.TransferDuration(time.Since(started).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.TransferRetry()
		}
		c.metrics.TransferAttempt()

		tr, err := c.api.NewTransfer(params)
		if err == nil {
			result.TransferID = tr.ID
			result.Amount = tr.Amount
			result.Reversed = tr.Reversed
			return result, nil
		}
		lastErr = err

		class := classify(err)
		if class.rateLimited {
			result.RateLimited = true
			c.metrics.RateLimitHit()
		}
		if !class.retryable {
			return result, class.domainErr(err)
		}
		if attempt == c.maxAttempts {
			break
		}

		wait := c.backoff(attempt, class.retryAfter)
		result.Retries++
		c.logger.WarnContext(ctx, "transfer attempt failed, retrying",
			"payout_id", req.PayoutID,
			"attempt", attempt,
			"wait", wait,
			"error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return result, err
		}
	}
	return result, fmt.Errorf("%w: transfer for payout %s exhausted %d attempts: %v",
		domain.ErrTransferFailed, req.PayoutID, c.maxAttempts, lastErr)
}

// backoff doubles the base delay per attempt, capped, and defers to the
// server's Retry-After hint when it is longer.
func (c *Client) backoff(attempt int, retryAfter time.Duration) time.Duration {
	wait := c.baseBackoff << (attempt - 1)
	if wait > maxBackoff {
		wait = maxBackoff
	}
	if retryAfter > wait {
		wait = retryAfter
		if wait > maxBackoff {
			wait = maxBackoff
		}
	}
	return wait
}

func (c *Client) GetTransfer(ctx context.Context, transferID string) (ports.TransferResult, error) {
	params := &stripeapi.TransferParams{}
	params.Context = ctx
	tr, err := c.api.GetTransfer(transferID, params)
	if err != nil {
		return ports.TransferResult{}, classify(err).domainErr(err)
	}
	result := ports.TransferResult{
		TransferID: tr.ID,
		Amount:     tr.Amount,
		Reversed:   tr.Reversed,
	}
	if tr.Destination != nil {
		result.Destination = tr.Destination.ID
	}
	return result, nil
}

// CancelTransfer reverses a transfer. Stripe has no direct cancellation for
// transfers; a full reversal returns the funds to the platform balance.
func (c *Client) CancelTransfer(ctx context.Context, transferID string) (ports.ReversalResult, error) {
	params := &stripeapi.TransferReversalParams{
		ID: stripeapi.String(transferID),
	}
	params.Context = ctx
	params.SetIdempotencyKey("po-rev-" + transferID)
	rev, err := c.api.NewReversal(params)
	if err != nil {
		return ports.ReversalResult{}, classify(err).domainErr(err)
	}
	result := ports.ReversalResult{
		ReversalID: rev.ID,
		TransferID: transferID,
		Amount:     rev.Amount,
	}
	return result, nil
}

type errorClass struct {
	retryable   bool
	rateLimited bool
	retryAfter  time.Duration
	sentinel    error
}

func (e errorClass) domainErr(err error) error {
	if e.sentinel != nil {
		return fmt.Errorf("%w: %v", e.sentinel, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
}

// classify maps a Stripe SDK error onto retryability and the domain sentinel
// it should unwrap to. Anything that is not a *stripe.Error is treated as a
// transport failure and retried.
func classify(err error) errorClass {
	stripeErr, ok := err.(*stripeapi.Error)
	if !ok {
		return errorClass{retryable: true}
	}

	if stripeErr.HTTPStatusCode == 429 || stripeErr.Code == stripeapi.ErrorCodeRateLimit {
		return errorClass{
			retryable:   true,
			rateLimited: true,
			retryAfter:  retryAfterHint(stripeErr),
			sentinel:    domain.ErrRateLimited,
		}
	}
	if stripeErr.HTTPStatusCode >= 500 || stripeErr.Type == stripeapi.ErrorTypeAPI {
		return errorClass{retryable: true}
	}

	switch stripeErr.Code {
	case stripeapi.ErrorCodeBalanceInsufficient:
		return errorClass{sentinel: domain.ErrInsufficientBalance}
	case stripeapi.ErrorCodeAccountInvalid, stripeapi.ErrorCodeTransfersNotAllowed:
		return errorClass{sentinel: domain.ErrAccountNotReady}
	case stripeapi.ErrorCodeResourceMissing:
		return errorClass{sentinel: domain.ErrAccountNotReady}
	}
	if stripeErr.Type == stripeapi.ErrorTypeInvalidRequest {
		return errorClass{sentinel: domain.ErrInvalidInput}
	}
	return errorClass{sentinel: domain.ErrTransferFailed}
}

func retryAfterHint(stripeErr *stripeapi.Error) time.Duration {
	if stripeErr.LastResponse == nil {
		return 0
	}
	raw := stripeErr.LastResponse.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
