package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rytkhs/event-pay-sub006/internal/application"
	"github.com/rytkhs/event-pay-sub006/internal/contracts"
	"github.com/rytkhs/event-pay-sub006/internal/domain"
	"github.com/rytkhs/event-pay-sub006/internal/ports"
)

func (h *Handler) processPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.ProcessPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	eventID, err := uuid.Parse(strings.TrimSpace(req.EventID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "event_id is not a valid uuid", requestIDFromContext(r.Context()))
		return
	}
	userID := actor.SubjectID
	if raw := strings.TrimSpace(req.UserID); raw != "" {
		userID, err = uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "user_id is not a valid uuid", requestIDFromContext(r.Context()))
			return
		}
	}

	payout, err := h.service.ProcessPayout(r.Context(), actor, application.ProcessPayoutInput{
		EventID:       eventID,
		UserID:        userID,
		Notes:         req.Notes,
		TransferGroup: strings.TrimSpace(req.TransferGroup),
	})
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "", payout)
}

func (h *Handler) getPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	payoutID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "payout id is not a valid uuid", requestIDFromContext(r.Context()))
		return
	}
	payout, err := h.service.GetPayoutByID(r.Context(), actor, payoutID)
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) retryPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	payoutID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "payout id is not a valid uuid", requestIDFromContext(r.Context()))
		return
	}
	payout, err := h.service.RetryPayout(r.Context(), actor, payoutID)
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) cancelPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	payoutID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "payout id is not a valid uuid", requestIDFromContext(r.Context()))
		return
	}
	payout, err := h.service.CancelTransfer(r.Context(), actor, payoutID)
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	query := ports.HistoryQuery{
		Status: domain.PayoutStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		Limit:  parseIntOrDefault(r.URL.Query().Get("limit"), 20),
		Offset: parseIntOrDefault(r.URL.Query().Get("offset"), 0),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "user_id is not a valid uuid", requestIDFromContext(r.Context()))
			return
		}
		query.UserID = userID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("event_id")); raw != "" {
		eventID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "event_id is not a valid uuid", requestIDFromContext(r.Context()))
			return
		}
		query.EventID = eventID
	}

	out, err := h.service.GetPayoutHistory(r.Context(), actor, query)
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"items": out.Items,
		"pagination": contracts.Pagination{
			Limit:  out.Limit,
			Offset: out.Offset,
			Total:  out.Total,
		},
	})
}

func (h *Handler) getEventPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "event id is not a valid uuid", requestIDFromContext(r.Context()))
		return
	}
	payout, err := h.service.GetPayoutByEvent(r.Context(), actor, eventID)
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", payout)
}

func (h *Handler) checkEligibility(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "event id is not a valid uuid", requestIDFromContext(r.Context()))
		return
	}
	check, err := h.service.CheckPayoutEligibility(r.Context(), actor, eventID, actor.SubjectID)
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", check)
}

func (h *Handler) manualEligibility(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "event id is not a valid uuid", requestIDFromContext(r.Context()))
		return
	}
	userID := actor.SubjectID
	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		userID, err = uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "user_id is not a valid uuid", requestIDFromContext(r.Context()))
			return
		}
	}
	report, err := h.service.ManualPayoutEligibility(r.Context(), actor, eventID, userID)
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", report)
}

func (h *Handler) runScheduler(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if !actor.Admin() && !actor.System() {
		writeError(w, http.StatusForbidden, "forbidden", "scheduler runs require admin or system role", requestIDFromContext(r.Context()))
		return
	}
	var req contracts.SchedulerRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
			return
		}
	}
	result, err := h.scheduler.ExecuteScheduledPayouts(r.Context(), application.SchedulerOptions{
		DryRun:         req.DryRun,
		Limit:          req.Limit,
		MaxConcurrency: req.MaxConcurrency,
	})
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", result)
}

func (h *Handler) schedulerHistory(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if !actor.Admin() && !actor.System() {
		writeError(w, http.StatusForbidden, "forbidden", "scheduler history requires admin or system role", requestIDFromContext(r.Context()))
		return
	}
	items, total, err := h.scheduler.GetExecutionHistory(r.Context(), ports.SchedulerLogQuery{
		Limit:  parseIntOrDefault(r.URL.Query().Get("limit"), 20),
		Offset: parseIntOrDefault(r.URL.Query().Get("offset"), 0),
	})
	if err != nil {
		writeDomainError(w, err, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"items": items,
		"total": total,
	})
}

func parseIntOrDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
