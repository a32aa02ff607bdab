// Package sweep implements the schedule evaluator: one batch pass over every
// active liveness record, sending reminders, escalating per policy, and
// handing exhausted records to the inheritance trigger.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"heirloom/internal/liveness/engine"
	"heirloom/internal/liveness/metrics"
	"heirloom/internal/liveness/models"
	"heirloom/internal/liveness/ports"
	"heirloom/internal/liveness/service"
	id "heirloom/pkg/domain"
	dErrors "heirloom/pkg/domain-errors"
	"heirloom/pkg/platform/audit"
	"heirloom/pkg/platform/sentinel"
)

const tracerName = "heirloom/sweep"

// defaultUpcomingOffsets are the days-before-due marks at which the account
// holder is reminded of an approaching check-in.
var defaultUpcomingOffsets = []int{30, 14, 7, 1}

type Sweeper struct {
	store      ports.Store
	contacts   ports.ContactDirectory
	trigger    *service.Trigger
	renderer   ports.Renderer
	dispatcher ports.Dispatcher
	dedup      ports.ReminderDedup

	lock    ports.SweepLock
	lockTTL time.Duration

	workers         int
	dedupTTL        time.Duration
	upcomingOffsets []int

	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Sweeper) { s.auditPublisher = publisher }
}

// WithSweepLock enables cross-process exclusion; without it concurrent runs
// are still safe per record (version checks) but do duplicate work.
func WithSweepLock(lock ports.SweepLock, ttl time.Duration) Option {
	return func(s *Sweeper) {
		s.lock = lock
		s.lockTTL = ttl
	}
}

func WithWorkers(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithDedupTTL(ttl time.Duration) Option {
	return func(s *Sweeper) { s.dedupTTL = ttl }
}

func WithUpcomingOffsets(offsets []int) Option {
	return func(s *Sweeper) { s.upcomingOffsets = offsets }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func New(
	store ports.Store,
	contacts ports.ContactDirectory,
	trigger *service.Trigger,
	renderer ports.Renderer,
	dispatcher ports.Dispatcher,
	dedup ports.ReminderDedup,
	opts ...Option,
) (*Sweeper, error) {
	if store == nil || contacts == nil || trigger == nil {
		return nil, fmt.Errorf("store, contact directory, and trigger are required")
	}
	if renderer == nil || dispatcher == nil || dedup == nil {
		return nil, fmt.Errorf("renderer, dispatcher, and dedup store are required")
	}

	s := &Sweeper{
		store:           store,
		contacts:        contacts,
		trigger:         trigger,
		renderer:        renderer,
		dispatcher:      dispatcher,
		dedup:           dedup,
		workers:         8,
		dedupTTL:        48 * time.Hour,
		upcomingOffsets: defaultUpcomingOffsets,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes one sweep at the given instant. Per-record failures are
// isolated: they increment the Failures counter and the run continues.
// When a sweep lock is configured and another runner holds it, Run returns
// an empty result without touching any record.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (models.SweepResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "sweep.run",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if s.lock != nil {
		acquired, err := s.lock.TryAcquire(ctx, s.lockTTL)
		if err != nil {
			return models.SweepResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "sweep lock unavailable")
		}
		if !acquired {
			if s.logger != nil {
				s.logger.InfoContext(ctx, "sweep skipped, another runner holds the lease")
			}
			return models.SweepResult{}, nil
		}
		defer func() {
			if err := s.lock.Release(ctx); err != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "failed to release sweep lock", "error", err)
			}
		}()
	}

	started := time.Now()
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action: string(audit.EventSweepStarted),
	})

	records, err := s.store.ListActive(ctx)
	if err != nil {
		return models.SweepResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active records")
	}

	var (
		mu    sync.Mutex
		total models.SweepResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, record := range records {
		record := record
		g.Go(func() error {
			res := s.processRecord(gctx, record, now)
			mu.Lock()
			total.Add(res)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures land in the counters.
	_ = g.Wait()

	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(started).Seconds())
		s.metrics.SweepRecords.Add(float64(total.Processed))
		s.metrics.SweepFailures.Add(float64(total.Failures))
	}
	span.SetAttributes(
		attribute.Int("sweep.processed", total.Processed),
		attribute.Int("sweep.triggered", total.Triggered),
		attribute.Int("sweep.failures", total.Failures),
	)
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action: string(audit.EventSweepCompleted),
	}, "processed", total.Processed, "reminders_sent", total.RemindersSent,
		"family_alerts", total.FamilyAlerts, "professional_alerts", total.ProfessionalAlerts,
		"triggered", total.Triggered, "privacy_respected", total.PrivacyRespected,
		"failures", total.Failures)

	return total, nil
}

// processRecord runs the read-decide-write sequence for one record. A stale
// version means a concurrent check-in or another runner got there first; the
// record is re-read and re-decided once, then skipped.
func (s *Sweeper) processRecord(ctx context.Context, record *models.LivenessRecord, now time.Time) models.SweepResult {
	result := models.SweepResult{Processed: 1}

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			fresh, err := s.store.Get(ctx, record.UserID)
			if err != nil {
				s.recordFailure(ctx, record.UserID, &result, err)
				return result
			}
			if !fresh.IsActive {
				return result
			}
			record = fresh
		}

		err := s.evaluate(ctx, record, now, &result)
		if errors.Is(err, sentinel.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			s.recordFailure(ctx, record.UserID, &result, err)
		}
		return result
	}
	// Two stale reads in a row; the next sweep picks this record up.
	if s.logger != nil {
		s.logger.WarnContext(ctx, "record skipped after repeated version conflicts", "user_id", record.UserID)
	}
	return result
}

// evaluate applies the decision table for one record at one instant.
func (s *Sweeper) evaluate(ctx context.Context, record *models.LivenessRecord, now time.Time, result *models.SweepResult) error {
	days := record.DaysPastDue(now)

	switch {
	case days < 0:
		return s.sendUpcomingReminder(ctx, record, -days, now, result)

	case days <= int(record.GracePeriodDays):
		if record.RemindersSent < record.MaxReminders {
			return s.sendOverdueReminder(ctx, record, days, now, result)
		}
		// Budget spent but the grace period is still running; escalation
		// waits until grace expires.
		return nil

	case record.RemindersSent < record.MaxReminders:
		return s.escalate(ctx, record, days, now, result)

	default:
		return s.fireTrigger(ctx, record, result)
	}
}

// sendUpcomingReminder reminds the account holder ahead of the due date at
// the configured day marks. The dedup key makes repeated same-day sweeps
// idempotent.
func (s *Sweeper) sendUpcomingReminder(ctx context.Context, record *models.LivenessRecord, daysBefore int, now time.Time, result *models.SweepResult) error {
	hit := false
	for _, offset := range s.upcomingOffsets {
		if offset == daysBefore {
			hit = true
			break
		}
	}
	if !hit {
		return nil
	}

	key := fmt.Sprintf("%s|%d|%s", record.UserID, daysBefore, models.KindUpcomingReminder)
	acquired, err := s.dedup.Acquire(ctx, key, s.dedupTTL)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "reminder dedup store unavailable")
	}
	if !acquired {
		return nil
	}

	status := s.dispatchToUser(ctx, record, models.KindUpcomingReminder, -daysBefore, now, key)
	if status == models.DeliverySent {
		result.RemindersSent++
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
			UserID: record.UserID,
			Action: string(audit.EventUpcomingReminderSent),
		}, "user_id", record.UserID, "days_before_due", daysBefore)
	}
	return nil
}

// sendOverdueReminder moves the record to overdue and spends one unit of the
// reminder budget. The state write happens before the dispatch so a racing
// runner cannot spend the same unit twice.
func (s *Sweeper) sendOverdueReminder(ctx context.Context, record *models.LivenessRecord, days int, now time.Time, result *models.SweepResult) error {
	record.Status = models.StatusOverdue
	if !record.IncrementReminders() {
		return nil
	}
	record.UpdatedAt = now
	if err := s.store.Update(ctx, record); err != nil {
		return err
	}

	status := s.dispatchToUser(ctx, record, models.KindOverdueReminder, days, now, "")
	if status == models.DeliverySent {
		result.RemindersSent++
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
			UserID: record.UserID,
			Action: string(audit.EventOverdueReminderSent),
		}, "user_id", record.UserID, "days_past_due", days, "reminders_sent", record.RemindersSent)
	}
	return nil
}

// escalate handles the alert phase: past grace with reminder budget left.
// The reminder counter is untouched here; only the terminal phase consumes
// the remaining budget's meaning.
func (s *Sweeper) escalate(ctx context.Context, record *models.LivenessRecord, days int, now time.Time, result *models.SweepResult) error {
	if record.Status != models.StatusOverdue {
		record.Status = models.StatusOverdue
		record.UpdatedAt = now
		if err := s.store.Update(ctx, record); err != nil {
			return err
		}
	}

	decision := engine.Decide(record.Policy, engine.PhaseAlert)
	if decision.PrivacyRespected {
		result.PrivacyRespected++
		if s.metrics != nil {
			s.metrics.PrivacySuppressed.Inc()
		}
	}

	if decision.NotifyFamily {
		family, err := s.contacts.FamilyContacts(ctx, record.UserID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load family contacts")
		}
		for _, contact := range family {
			if decision.ExcludeProfessionalsFromFamily && record.Policy.IsProfessional(contact.ID) {
				continue
			}
			if s.dispatchAlert(ctx, record, contact, decision.FamilyKind, models.RecipientFamily, decision.PrivacyRespected, days, now) {
				result.FamilyAlerts++
				ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
					UserID:    record.UserID,
					Action:    string(audit.EventFamilyAlertSent),
					Recipient: contact.ID.String(),
					Kind:      string(decision.FamilyKind),
					Decision:  string(decision.Branch),
				}, "user_id", record.UserID)
			}
		}
	}

	if decision.NotifyProfessional {
		professionals, err := s.contacts.ProfessionalContacts(ctx, record.UserID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load professional contacts")
		}
		for _, contact := range professionals {
			if s.dispatchAlert(ctx, record, contact, decision.ProfessionalKind, models.RecipientProfessional, decision.PrivacyRespected, days, now) {
				result.ProfessionalAlerts++
				ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
					UserID:    record.UserID,
					Action:    string(audit.EventProfessionalAlertSent),
					Recipient: contact.ID.String(),
					Kind:      string(decision.ProfessionalKind),
					Decision:  string(decision.Branch),
				}, "user_id", record.UserID)
			}
		}
	}
	return nil
}

// fireTrigger hands the record to the inheritance trigger. A duplicate is a
// logged no-op inside the trigger, not a failure here.
func (s *Sweeper) fireTrigger(ctx context.Context, record *models.LivenessRecord, result *models.SweepResult) error {
	decision := engine.Decide(record.Policy, engine.PhaseTrigger)
	if decision.PrivacyRespected {
		result.PrivacyRespected++
		if s.metrics != nil {
			s.metrics.PrivacySuppressed.Inc()
		}
	}

	_, fired, err := s.trigger.Fire(ctx, record.UserID, decision)
	if err != nil {
		return err
	}
	if fired {
		result.Triggered++
		if s.metrics != nil {
			s.metrics.TriggersFired.Inc()
		}
	}
	return nil
}

// dispatchToUser sends a reminder to the account holder. Reminders are never
// policy-gated; they address the user, not the escalation contacts.
func (s *Sweeper) dispatchToUser(ctx context.Context, record *models.LivenessRecord, kind models.NotificationKind, daysPastDue int, now time.Time, dedupKey string) models.DeliveryStatus {
	recipient := models.Contact{ID: id.ContactID(record.UserID)}

	status := models.DeliverySent
	msg, err := s.renderer.Render(kind, ports.RenderContext{
		UserID:      record.UserID,
		Recipient:   recipient,
		DaysPastDue: daysPastDue,
	})
	if err == nil {
		res := s.dispatcher.Send(ctx, recipient, kind, msg)
		status = res.Status
		if res.Status == models.DeliveryFailed {
			s.auditDispatchFailure(ctx, record.UserID, recipient, kind, res.Err)
		}
	} else {
		status = models.DeliveryFailed
	}
	if s.metrics != nil {
		s.metrics.DispatchOutcomes.WithLabelValues(string(kind), string(status)).Inc()
	}

	n := &models.NotificationRecord{
		ID:             id.NewNotificationID(),
		UserID:         record.UserID,
		RecipientID:    recipient.ID,
		RecipientClass: models.RecipientUser,
		Kind:           kind,
		SentAt:         now,
		RequiresAction: models.RequiresRecipientAction(kind),
		DeliveryStatus: status,
		DedupKey:       dedupKey,
	}
	if err := s.store.AppendNotification(ctx, n); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to append reminder notification",
			"user_id", record.UserID, "kind", kind, "error", err)
	}
	return status
}

// dispatchAlert sends one alert-phase message and records the attempt. It
// reports whether delivery succeeded; a failure is recorded and isolated.
func (s *Sweeper) dispatchAlert(ctx context.Context, record *models.LivenessRecord, contact models.Contact, kind models.NotificationKind, class models.RecipientClass, privacyRespected bool, daysPastDue int, now time.Time) bool {
	appendMsg := record.Policy.CustomMessage
	if class == models.RecipientProfessional && record.Policy.ProfessionalMessage != "" {
		appendMsg = record.Policy.ProfessionalMessage
	}

	status := models.DeliverySent
	msg, err := s.renderer.Render(kind, ports.RenderContext{
		UserID:        record.UserID,
		Recipient:     contact,
		DaysPastDue:   daysPastDue,
		AppendMessage: appendMsg,
	})
	if err == nil {
		res := s.dispatcher.Send(ctx, contact, kind, msg)
		status = res.Status
		if res.Status == models.DeliveryFailed {
			s.auditDispatchFailure(ctx, record.UserID, contact, kind, res.Err)
		}
	} else {
		status = models.DeliveryFailed
	}
	if s.metrics != nil {
		s.metrics.DispatchOutcomes.WithLabelValues(string(kind), string(status)).Inc()
		if status == models.DeliverySent {
			s.metrics.AlertsSent.WithLabelValues(string(class)).Inc()
		}
	}

	n := &models.NotificationRecord{
		ID:               id.NewNotificationID(),
		UserID:           record.UserID,
		RecipientID:      contact.ID,
		RecipientClass:   class,
		Kind:             kind,
		SentAt:           now,
		RequiresAction:   models.RequiresRecipientAction(kind),
		PrivacyRespected: privacyRespected,
		DeliveryStatus:   status,
	}
	if err := s.store.AppendNotification(ctx, n); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to append alert notification",
			"user_id", record.UserID, "kind", kind, "error", err)
	}
	return status == models.DeliverySent
}

func (s *Sweeper) auditDispatchFailure(ctx context.Context, userID id.UserID, recipient models.Contact, kind models.NotificationKind, cause error) {
	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		UserID:    userID,
		Action:    string(audit.EventDispatchFailed),
		Recipient: recipient.ID.String(),
		Kind:      string(kind),
	}, "user_id", userID, "error", cause)
}

func (s *Sweeper) recordFailure(ctx context.Context, userID id.UserID, result *models.SweepResult, err error) {
	result.Failures++
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "record sweep failed", "user_id", userID, "error", err)
	}
}
