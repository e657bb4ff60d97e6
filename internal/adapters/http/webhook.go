package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/rytkhs/event-pay-sub006/internal/application"
)

const maxWebhookBody = 1 << 16

// WebhookHandler verifies and dispatches Stripe transfer events. Delivery is
// at-least-once; the service's dedup store and idempotent transitions absorb
// replays, so the handler only has to verify, parse and route.
type WebhookHandler struct {
	service       *application.Service
	logger        *slog.Logger
	signingSecret string
}

func NewWebhookHandler(service *application.Service, logger *slog.Logger, signingSecret string) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{service: service, logger: logger, signingSecret: signingSecret}
}

func (h *WebhookHandler) handleStripeEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "webhook body exceeds limit", requestIDFromContext(r.Context()))
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.signingSecret)
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature verification failed", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed", requestIDFromContext(r.Context()))
		return
	}

	var tr stripeapi.Transfer
	if err := json.Unmarshal(event.Data.Raw, &tr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "webhook object is not a transfer", requestIDFromContext(r.Context()))
		return
	}
	payoutID, err := uuid.Parse(tr.Metadata["payout_id"])
	if err != nil {
		// Transfers created outside this engine carry no payout linkage.
		h.logger.InfoContext(r.Context(), "webhook transfer without payout metadata ignored",
			"stripe_event_id", event.ID, "transfer_id", tr.ID)
		writeSuccess(w, http.StatusOK, "ignored", nil)
		return
	}

	switch event.Type {
	case "transfer.created", "transfer.updated":
		err = h.service.ConfirmTransfer(r.Context(), event.ID, payoutID, tr.ID)
	case "transfer.reversed":
		err = h.service.HandleTransferReversed(r.Context(), event.ID, payoutID, tr.ID)
	default:
		h.logger.InfoContext(r.Context(), "webhook event type ignored",
			"stripe_event_id", event.ID, "type", event.Type)
		writeSuccess(w, http.StatusOK, "ignored", nil)
		return
	}
	if err != nil {
		// Non-2xx makes Stripe redeliver; the dedup store keeps redelivery safe.
		h.logger.ErrorContext(r.Context(), "webhook processing failed",
			"stripe_event_id", event.ID, "payout_id", payoutID, "error", err)
		writeError(w, http.StatusInternalServerError, "webhook_processing_failed", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "processed", nil)
}
