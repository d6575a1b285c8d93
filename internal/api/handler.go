package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ResumeMailer/internal/campaigns"
	"ResumeMailer/internal/csvparser"
	"ResumeMailer/internal/models"
)

type BatchResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	models.BatchSummary
}

type SweepResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	campaigns.ScheduleReport
}

type userRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) timestamp() string {
	return h.Now().UTC().Format(time.RFC3339)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Health.Ping(ctx); err != nil {
			h.Log.Warn("health check failed", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Database unreachable")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "resume-mailer",
	})
}

func (h *Handler) handleProcessEmails(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Processor.ProcessEmailJobs(r.Context())
	if err != nil {
		h.Log.Error("email batch failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to process email jobs")
		return
	}

	respondJSON(w, http.StatusOK, BatchResponse{
		Success:      true,
		Message:      "Email jobs processed",
		Timestamp:    h.timestamp(),
		BatchSummary: summary,
	})
}

func (h *Handler) handleAbandonedResumes(w http.ResponseWriter, r *http.Request) {
	report, err := h.Scheduler.ScheduleAbandonedResumes(r.Context())
	if err != nil {
		h.Log.Error("abandoned resume sweep failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to schedule abandoned resume emails")
		return
	}

	respondJSON(w, http.StatusOK, SweepResponse{
		Success:        true,
		Message:        "Abandoned resume emails scheduled",
		Timestamp:      h.timestamp(),
		ScheduleReport: report,
	})
}

func (h *Handler) handleReengagement(w http.ResponseWriter, r *http.Request) {
	threshold, err := intParam(r, "threshold", campaigns.DefaultInactiveThreshold)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}
	limit, err := intParam(r, "limit", campaigns.DefaultInactiveLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}

	report, err := h.Scheduler.ScheduleReengagement(r.Context(), threshold, limit)
	if err != nil {
		h.Log.Error("re-engagement sweep failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to schedule re-engagement emails")
		return
	}

	respondJSON(w, http.StatusOK, SweepResponse{
		Success:        true,
		Message:        "Re-engagement emails scheduled",
		Timestamp:      h.timestamp(),
		ScheduleReport: report,
	})
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func (h *Handler) readUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req userRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body")
		return "", false
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "userId is required")
		return "", false
	}
	return req.UserID, true
}

func (h *Handler) handleWelcome(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.readUserID(w, r)
	if !ok {
		return
	}

	job, err := h.Scheduler.ScheduleWelcomeSeries(r.Context(), userID)
	if err != nil {
		h.Log.Error("failed to schedule welcome series", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to schedule welcome series")
		return
	}

	resp := map[string]any{
		"success":   true,
		"scheduled": job != nil,
		"timestamp": h.timestamp(),
	}
	if job != nil {
		resp["jobId"] = job.ID
		resp["scheduledAt"] = job.ScheduledAt.UTC().Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleOptOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.readUserID(w, r)
	if !ok {
		return
	}

	n, err := h.Scheduler.CancelWelcomeSeries(r.Context(), userID)
	if err != nil {
		h.Log.Error("failed to cancel welcome series", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to cancel welcome series")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"cancelled": n,
		"timestamp": h.timestamp(),
	})
}

func (h *Handler) handleSuppressions(w http.ResponseWriter, r *http.Request) {
	if h.Suppressions == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnconfigured, "Suppression list requires Redis")
		return
	}

	addrs, invalid, err := csvparser.ParseSuppressionRows(http.MaxBytesReader(w, r.Body, maxCSVBody), csvparser.DefaultMaxRows)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}

	added, err := h.Suppressions.AddSuppressions(r.Context(), addrs...)
	if err != nil {
		h.Log.Error("failed to add suppressions", zap.Error(err))
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to update suppression list")
		return
	}

	h.Log.Info("suppression list updated",
		zap.Int("parsed", len(addrs)),
		zap.Int64("added", added),
		zap.Int("invalid", len(invalid)),
	)

	if invalid == nil {
		invalid = []csvparser.InvalidRow{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"parsed":    len(addrs),
		"added":     added,
		"invalid":   invalid,
		"timestamp": h.timestamp(),
	})
}
