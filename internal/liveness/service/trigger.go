package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"heirloom/internal/liveness/engine"
	"heirloom/internal/liveness/models"
	"heirloom/internal/liveness/ports"
	id "heirloom/pkg/domain"
	dErrors "heirloom/pkg/domain-errors"
	"heirloom/pkg/platform/audit"
	"heirloom/pkg/platform/sentinel"
)

// Trigger is the terminal action: it deactivates a liveness record and emits
// one release event per (asset, beneficiary) pair. The status transition is a
// compare-and-set, so a duplicated or retried call is a safe no-op - the
// release fan-out runs only in the call that wins the transition.
type Trigger struct {
	store          ports.Store
	contacts       ports.ContactDirectory
	assets         ports.AssetDirectory
	renderer       ports.Renderer
	dispatcher     ports.Dispatcher
	releases       ports.ReleasePublisher
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	now            func() time.Time
}

type TriggerOption func(*Trigger)

func TriggerWithLogger(logger *slog.Logger) TriggerOption {
	return func(t *Trigger) { t.logger = logger }
}

func TriggerWithAuditPublisher(publisher ports.AuditPublisher) TriggerOption {
	return func(t *Trigger) { t.auditPublisher = publisher }
}

func TriggerWithReleasePublisher(publisher ports.ReleasePublisher) TriggerOption {
	return func(t *Trigger) { t.releases = publisher }
}

func TriggerWithClock(now func() time.Time) TriggerOption {
	return func(t *Trigger) { t.now = now }
}

func NewTrigger(
	store ports.Store,
	contacts ports.ContactDirectory,
	assets ports.AssetDirectory,
	renderer ports.Renderer,
	dispatcher ports.Dispatcher,
	opts ...TriggerOption,
) (*Trigger, error) {
	if store == nil {
		return nil, fmt.Errorf("liveness store is required")
	}
	if contacts == nil || assets == nil {
		return nil, fmt.Errorf("contact and asset directories are required")
	}
	if renderer == nil || dispatcher == nil {
		return nil, fmt.Errorf("renderer and dispatcher are required")
	}

	t := &Trigger{
		store:      store,
		contacts:   contacts,
		assets:     assets,
		renderer:   renderer,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Fire attempts the terminal transition for a user. It returns the release
// events emitted and whether this call performed the transition. A record
// already in the triggered state yields (nil, false, nil) and an audit entry;
// a record that a concurrent check-in reset out of trigger eligibility yields
// (nil, false, nil) without touching it.
func (t *Trigger) Fire(ctx context.Context, userID id.UserID, decision engine.Decision) ([]*models.InheritanceReleaseEvent, bool, error) {
	var record *models.LivenessRecord
	for {
		var err error
		record, err = t.store.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, false, dErrors.New(dErrors.CodeNotFound, "no liveness record for user")
			}
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load liveness record")
		}

		if record.Status == models.StatusTriggered {
			ports.LogAudit(ctx, t.logger, t.auditPublisher, audit.Event{
				UserID: userID,
				Action: string(audit.EventTriggerDuplicateIgnored),
				Reason: "record already triggered",
			}, "user_id", userID)
			return nil, false, nil
		}

		now := t.now()
		// The caller decided to trigger from an earlier read. A check-in may
		// have reset the record since; the reset wins and the trigger aborts.
		if !record.TriggerEligible(now) {
			if t.logger != nil {
				t.logger.InfoContext(ctx, "trigger aborted, record no longer eligible",
					"user_id", userID,
					"status", record.Status,
					"next_due_at", record.NextDueAt,
				)
			}
			return nil, false, nil
		}

		record.Status = models.StatusTriggered
		record.IsActive = false
		record.UpdatedAt = now

		err = t.store.Update(ctx, record)
		if err == nil {
			break
		}
		if errors.Is(err, sentinel.ErrVersionMismatch) {
			// A concurrent check-in or sweep moved the record; re-read. If
			// the other writer triggered or reset it, the next iteration
			// no-ops.
			continue
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark record triggered")
	}

	ports.LogAudit(ctx, t.logger, t.auditPublisher, audit.Event{
		UserID:   userID,
		Action:   string(audit.EventInheritanceTriggered),
		Decision: string(decision.Branch),
		Reason:   models.ReleaseReasonCheckinFailure,
	}, "user_id", userID)

	events, err := t.emitReleaseEvents(ctx, record)
	if err != nil {
		// The transition already happened; surface the fan-out error but the
		// record stays terminal. The next sweep will not re-enter here.
		return events, true, err
	}

	t.notifyRecipients(ctx, record, decision)

	return events, true, nil
}

// emitReleaseEvents creates one event per (asset, beneficiary) pair whose
// beneficiary is in the eligible recipient set: family contacts, plus
// professional contacts when the policy separates channels.
func (t *Trigger) emitReleaseEvents(ctx context.Context, record *models.LivenessRecord) ([]*models.InheritanceReleaseEvent, error) {
	family, err := t.contacts.FamilyContacts(ctx, record.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load family contacts")
	}

	eligible := family
	if record.Policy.SeparateChannels {
		professionals, err := t.contacts.ProfessionalContacts(ctx, record.UserID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load professional contacts")
		}
		eligible = append(eligible, professionals...)
	}

	holdings, err := t.assets.AssetsWithBeneficiaries(ctx, record.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset holdings")
	}

	now := t.now()
	var events []*models.InheritanceReleaseEvent
	for _, holding := range holdings {
		for _, beneficiary := range holding.BeneficiaryIDs {
			if !eligibleBeneficiary(beneficiary, eligible) {
				continue
			}
			event := &models.InheritanceReleaseEvent{
				ID:            id.NewReleaseEventID(),
				UserID:        record.UserID,
				AssetID:       holding.AssetID,
				BeneficiaryID: beneficiary,
				TriggeredAt:   now,
				Reason:        models.ReleaseReasonCheckinFailure,
				Status:        models.ReleasePending,
			}
			if err := t.store.AppendReleaseEvent(ctx, event); err != nil {
				return events, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append release event")
			}
			events = append(events, event)

			if t.releases != nil {
				if err := t.releases.PublishRelease(ctx, record.UserID.String(), event); err != nil && t.logger != nil {
					t.logger.WarnContext(ctx, "release event publication failed",
						"user_id", record.UserID,
						"asset_id", holding.AssetID,
						"error", err,
					)
				}
			}

			ports.LogAudit(ctx, t.logger, t.auditPublisher, audit.Event{
				UserID: record.UserID,
				Action: string(audit.EventReleaseEventEmitted),
				Reason: models.ReleaseReasonCheckinFailure,
			}, "user_id", record.UserID, "asset_id", holding.AssetID, "beneficiary_id", beneficiary)
		}
	}
	return events, nil
}

func eligibleBeneficiary(b id.BeneficiaryID, contacts []models.Contact) bool {
	for _, c := range contacts {
		if models.BeneficiaryIsContact(b, c.ID) {
			return true
		}
	}
	return false
}

// notifyRecipients sends the trigger-phase notices. One recipient failing
// must not abort the others, so errors are recorded per notification.
func (t *Trigger) notifyRecipients(ctx context.Context, record *models.LivenessRecord, decision engine.Decision) {
	now := t.now()

	if decision.NotifyFamily {
		family, err := t.contacts.FamilyContacts(ctx, record.UserID)
		if err != nil {
			if t.logger != nil {
				t.logger.ErrorContext(ctx, "family contacts unavailable for trigger notices",
					"user_id", record.UserID, "error", err)
			}
		} else {
			for _, contact := range family {
				if decision.ExcludeProfessionalsFromFamily && record.Policy.IsProfessional(contact.ID) {
					continue
				}
				t.sendTriggerNotice(ctx, record, contact, decision.FamilyKind, models.RecipientFamily, decision.PrivacyRespected, now)
			}
		}
	}

	if decision.NotifyProfessional {
		professionals, err := t.contacts.ProfessionalContacts(ctx, record.UserID)
		if err != nil {
			if t.logger != nil {
				t.logger.ErrorContext(ctx, "professional contacts unavailable for trigger notices",
					"user_id", record.UserID, "error", err)
			}
		} else {
			for _, contact := range professionals {
				t.sendTriggerNotice(ctx, record, contact, decision.ProfessionalKind, models.RecipientProfessional, decision.PrivacyRespected, now)
			}
		}
	}
}

func (t *Trigger) sendTriggerNotice(
	ctx context.Context,
	record *models.LivenessRecord,
	contact models.Contact,
	kind models.NotificationKind,
	class models.RecipientClass,
	privacyRespected bool,
	now time.Time,
) {
	appendMsg := record.Policy.CustomMessage
	if class == models.RecipientProfessional && record.Policy.ProfessionalMessage != "" {
		appendMsg = record.Policy.ProfessionalMessage
	}

	msg, err := t.renderer.Render(kind, ports.RenderContext{
		UserID:        record.UserID,
		Recipient:     contact,
		DaysPastDue:   record.DaysPastDue(now),
		AppendMessage: appendMsg,
	})
	status := models.DeliverySent
	if err == nil {
		result := t.dispatcher.Send(ctx, contact, kind, msg)
		if result.Status == models.DeliveryFailed {
			status = models.DeliveryFailed
			ports.LogAudit(ctx, t.logger, t.auditPublisher, audit.Event{
				UserID:    record.UserID,
				Action:    string(audit.EventDispatchFailed),
				Recipient: contact.ID.String(),
				Kind:      string(kind),
			}, "user_id", record.UserID, "error", result.Err)
		}
	} else {
		status = models.DeliveryFailed
	}

	notification := &models.NotificationRecord{
		ID:                   id.NewNotificationID(),
		UserID:               record.UserID,
		RecipientID:          contact.ID,
		RecipientClass:       class,
		Kind:                 kind,
		SentAt:               now,
		RequiresAction:       models.RequiresRecipientAction(kind),
		TriggeredInheritance: true,
		PrivacyRespected:     privacyRespected,
		DeliveryStatus:       status,
	}
	if err := t.store.AppendNotification(ctx, notification); err != nil && t.logger != nil {
		t.logger.ErrorContext(ctx, "failed to append trigger notification",
			"user_id", record.UserID, "recipient", contact.ID, "error", err)
	}
}
