// Package handler exposes the liveness operations over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"heirloom/internal/liveness/models"
	"heirloom/internal/platform/middleware"
	id "heirloom/pkg/domain"
	dErrors "heirloom/pkg/domain-errors"
	"heirloom/pkg/platform/httputil"
)

// Service is the liveness tracker surface the handler exposes.
type Service interface {
	Initialize(ctx context.Context, userID id.UserID, policy *models.EscalationPolicy) (*models.LivenessRecord, error)
	CheckIn(ctx context.Context, userID id.UserID) (*models.LivenessRecord, error)
	UpdatePolicy(ctx context.Context, userID id.UserID, patch models.PolicyPatch) (*models.LivenessRecord, error)
	GetStatus(ctx context.Context, userID id.UserID) (*models.LivenessRecord, error)
	ListNotifications(ctx context.Context, userID id.UserID) ([]*models.NotificationRecord, error)
}

// SweepRunner is the on-demand sweep surface (ops endpoint; the scheduler
// uses the sweeper directly).
type SweepRunner interface {
	Run(ctx context.Context, now time.Time) (models.SweepResult, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
	sweeper SweepRunner
	now     func() time.Time
}

func New(service Service, sweeper SweepRunner, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		sweeper: sweeper,
		now:     time.Now,
	}
}

// Register mounts the liveness routes with the shared middleware chain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	router.Post("/liveness/{userID}", h.handleInitialize)
	router.Post("/liveness/{userID}/checkin", h.handleCheckIn)
	router.Patch("/liveness/{userID}/policy", h.handleUpdatePolicy)
	router.Get("/liveness/{userID}", h.handleGetStatus)
	router.Get("/liveness/{userID}/notifications", h.handleListNotifications)
	router.Post("/internal/sweep", h.handleRunSweep)

	r.Mount("/", router)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return id.UserID{}, false
	}
	return userID, true
}

// handleInitialize creates the liveness record. An optional body carries
// policy overrides applied onto the default policy.
func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var policy *models.EscalationPolicy
	var patch models.PolicyPatch
	err := json.NewDecoder(r.Body).Decode(&patch)
	switch {
	case err == nil:
		p := models.DefaultPolicy().Apply(patch)
		policy = &p
	case errors.Is(err, io.EOF):
		// Empty body: default policy.
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.service.Initialize(ctx, userID, policy)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to initialize liveness record")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(record, h.now()))
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	record, err := h.service.CheckIn(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "check-in failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record, h.now()))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var patch models.PolicyPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.service.UpdatePolicy(ctx, userID, patch)
	if err != nil {
		h.writeServiceError(ctx, w, err, "policy update failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record, h.now()))
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	record, err := h.service.GetStatus(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "status lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record, h.now()))
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	notifications, err := h.service.ListNotifications(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "notification listing failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNotificationsResponse(notifications))
}

// handleRunSweep runs a sweep immediately. Operational surface; normal runs
// come from the cron scheduler.
func (h *Handler) handleRunSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.sweeper.Run(ctx, h.now())
	if err != nil {
		h.writeServiceError(ctx, w, err, "sweep failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
