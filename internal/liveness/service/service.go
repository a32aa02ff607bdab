// Package service implements the liveness tracker: record initialization,
// user check-ins, policy updates, and the terminal inheritance trigger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"heirloom/internal/liveness/models"
	"heirloom/internal/liveness/ports"
	id "heirloom/pkg/domain"
	dErrors "heirloom/pkg/domain-errors"
	"heirloom/pkg/platform/audit"
	"heirloom/pkg/platform/sentinel"
)

// Defaults are the record parameters applied at initialization.
type Defaults struct {
	GracePeriodDays uint
	MaxReminders    uint
	// CheckinInterval overrides the six-month due period when non-zero;
	// mainly a lever for tests and staging environments.
	CheckinInterval time.Duration
}

type Service struct {
	store          ports.Store
	defaults       Defaults
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

// WithClock replaces the time source; tests pin it to a fixed instant.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store ports.Store, defaults Defaults, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("liveness store is required")
	}
	if defaults.GracePeriodDays == 0 {
		defaults.GracePeriodDays = 14
	}
	if defaults.MaxReminders == 0 {
		defaults.MaxReminders = 4
	}

	svc := &Service{
		store:    store,
		defaults: defaults,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// nextDue computes the due date from a check-in instant: six calendar months
// out, unless an interval override is configured.
func (s *Service) nextDue(from time.Time) time.Time {
	if s.defaults.CheckinInterval > 0 {
		return from.Add(s.defaults.CheckinInterval)
	}
	return from.AddDate(0, 6, 0)
}

// Initialize creates the liveness record at onboarding. The supplied policy
// is validated; nil means the default policy.
func (s *Service) Initialize(ctx context.Context, userID id.UserID, policy *models.EscalationPolicy) (*models.LivenessRecord, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}

	p := models.DefaultPolicy()
	if policy != nil {
		p = policy.Clone()
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	now := s.now()
	record := &models.LivenessRecord{
		ID:              id.NewRecordID(),
		UserID:          userID,
		LastCheckinAt:   now,
		NextDueAt:       s.nextDue(now),
		Status:          models.StatusActive,
		RemindersSent:   0,
		MaxReminders:    s.defaults.MaxReminders,
		GracePeriodDays: s.defaults.GracePeriodDays,
		IsActive:        true,
		Policy:          p,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "liveness record already exists for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create liveness record")
	}

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		UserID: userID,
		Action: string(audit.EventCheckinInitialized),
	}, "user_id", userID)

	return record, nil
}

// CheckIn resets the liveness clock. Valid from active and overdue states; a
// triggered record stays terminal - release events may already be in flight
// downstream, so a late check-in must not silently undo them.
func (s *Service) CheckIn(ctx context.Context, userID id.UserID) (*models.LivenessRecord, error) {
	for {
		record, err := s.getRecord(ctx, userID)
		if err != nil {
			return nil, err
		}

		if record.Status == models.StatusTriggered {
			ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
				UserID: userID,
				Action: string(audit.EventCheckinAfterTrigger),
				Reason: "record already triggered",
			}, "user_id", userID)
			return nil, dErrors.New(dErrors.CodeConflict, "record already triggered; check-in is no longer possible")
		}

		now := s.now()
		record.Status = models.StatusActive
		record.LastCheckinAt = now
		record.NextDueAt = s.nextDue(now)
		record.RemindersSent = 0
		record.IsActive = true
		record.UpdatedAt = now

		err = s.store.Update(ctx, record)
		if err == nil {
			ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
				UserID: userID,
				Action: string(audit.EventCheckinRecorded),
			}, "user_id", userID, "next_due_at", record.NextDueAt)
			return record, nil
		}
		if errors.Is(err, sentinel.ErrVersionMismatch) {
			// Lost the race against a sweep worker; re-read and re-decide.
			// If the sweep just triggered the record the next iteration
			// rejects the check-in.
			continue
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record check-in")
	}
}

// UpdatePolicy merges the patch into the existing policy and validates the
// result. Unspecified fields are preserved.
func (s *Service) UpdatePolicy(ctx context.Context, userID id.UserID, patch models.PolicyPatch) (*models.LivenessRecord, error) {
	for {
		record, err := s.getRecord(ctx, userID)
		if err != nil {
			return nil, err
		}

		merged := record.Policy.Apply(patch)
		if err := merged.Validate(); err != nil {
			return nil, err
		}
		record.Policy = merged
		record.UpdatedAt = s.now()

		err = s.store.Update(ctx, record)
		if err == nil {
			ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
				UserID: userID,
				Action: string(audit.EventPolicyUpdated),
			}, "user_id", userID)
			return record, nil
		}
		if errors.Is(err, sentinel.ErrVersionMismatch) {
			continue
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update policy")
	}
}

// GetStatus returns the record as stored.
func (s *Service) GetStatus(ctx context.Context, userID id.UserID) (*models.LivenessRecord, error) {
	return s.getRecord(ctx, userID)
}

// ListNotifications returns the user's notification trail, most recent first.
func (s *Service) ListNotifications(ctx context.Context, userID id.UserID) ([]*models.NotificationRecord, error) {
	notifications, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return notifications, nil
}

func (s *Service) getRecord(ctx context.Context, userID id.UserID) (*models.LivenessRecord, error) {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no liveness record for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load liveness record")
	}
	return record, nil
}
