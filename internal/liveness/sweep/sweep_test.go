package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directorymemory "heirloom/internal/directory/memory"
	"heirloom/internal/liveness/models"
	"heirloom/internal/liveness/service"
	"heirloom/internal/liveness/store/memory"
	"heirloom/internal/notify"
	id "heirloom/pkg/domain"
	auditmemory "heirloom/pkg/platform/audit/store/memory"
	"heirloom/pkg/platform/audit/publisher"
)

var sweepNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	sweeper    *Sweeper
	store      *memory.Store
	directory  *directorymemory.Directory
	dispatcher *notify.MemoryDispatcher
	auditStore *auditmemory.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	directory := directorymemory.New()
	dispatcher := notify.NewMemoryDispatcher()
	auditStore := auditmemory.NewInMemoryStore()
	auditPub := publisher.NewPublisher(auditStore)

	trigger, err := service.NewTrigger(store, directory, directory, notify.NewPlainRenderer(), dispatcher,
		service.TriggerWithClock(func() time.Time { return sweepNow }),
		service.TriggerWithAuditPublisher(auditPub),
	)
	require.NoError(t, err)

	sweeper, err := New(store, directory, trigger, notify.NewPlainRenderer(), dispatcher, NewMemoryDedup(),
		WithAuditPublisher(auditPub),
		WithWorkers(2),
	)
	require.NoError(t, err)

	return &fixture{
		sweeper:    sweeper,
		store:      store,
		directory:  directory,
		dispatcher: dispatcher,
		auditStore: auditStore,
	}
}

// seedRecord creates a record due at the given offset from sweepNow.
func (f *fixture) seedRecord(t *testing.T, dueOffset time.Duration, remindersSent uint, policy models.EscalationPolicy) id.UserID {
	t.Helper()

	userID := id.NewUserID()
	record := &models.LivenessRecord{
		ID:              id.NewRecordID(),
		UserID:          userID,
		LastCheckinAt:   sweepNow.AddDate(0, -6, 0),
		NextDueAt:       sweepNow.Add(dueOffset),
		Status:          models.StatusActive,
		RemindersSent:   remindersSent,
		MaxReminders:    4,
		GracePeriodDays: 14,
		IsActive:        true,
		Policy:          policy,
	}
	if remindersSent > 0 {
		record.Status = models.StatusOverdue
	}
	require.NoError(t, f.store.Create(context.Background(), record))
	return userID
}

func (f *fixture) addFamilyBeneficiary(userID id.UserID, name string) models.Contact {
	contact := models.Contact{ID: id.NewContactID(), Name: name, Relationship: "family"}
	f.directory.AddFamilyContact(userID, contact)
	f.directory.AddAsset(userID, models.AssetHolding{
		AssetID:        id.NewAssetID(),
		BeneficiaryIDs: []id.BeneficiaryID{id.BeneficiaryID(uuid.UUID(contact.ID))},
	})
	return contact
}

func notificationsOfKind(t *testing.T, f *fixture, userID id.UserID, kind models.NotificationKind) []*models.NotificationRecord {
	t.Helper()
	all, err := f.store.ListNotifications(context.Background(), userID)
	require.NoError(t, err)
	var out []*models.NotificationRecord
	for _, n := range all {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestSweep_ScenarioA_ExhaustedBudgetTriggers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedRecord(t, -40*24*time.Hour, 4, models.DefaultPolicy())
	f.addFamilyBeneficiary(userID, "Dana")
	f.addFamilyBeneficiary(userID, "Sam")

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Triggered)
	assert.Equal(t, 0, result.Failures)

	record, err := f.store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTriggered, record.Status)
	assert.False(t, record.IsActive)

	triggered := notificationsOfKind(t, f, userID, models.KindInheritanceTriggered)
	assert.Len(t, triggered, 2) // one per family beneficiary

	events, err := f.store.ListReleaseEvents(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSweep_ScenarioB_AlertPhaseKeepsBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedRecord(t, -40*24*time.Hour, 2, models.DefaultPolicy())
	f.addFamilyBeneficiary(userID, "Dana")

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Triggered)
	assert.Equal(t, 1, result.FamilyAlerts)

	record, err := f.store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, record.Status)
	assert.Equal(t, uint(2), record.RemindersSent, "alert phase must not consume reminder budget")

	concerns := notificationsOfKind(t, f, userID, models.KindFamilyConcern)
	assert.Len(t, concerns, 1)
	assert.Empty(t, notificationsOfKind(t, f, userID, models.KindInheritanceTriggered))
}

func TestSweep_ScenarioC_UpcomingReminderDedup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedRecord(t, 7*24*time.Hour, 0, models.DefaultPolicy())

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RemindersSent)

	reminders := notificationsOfKind(t, f, userID, models.KindUpcomingReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, models.RecipientUser, reminders[0].RecipientClass)
	assert.NotEmpty(t, reminders[0].DedupKey)

	record, err := f.store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, record.Status)
	assert.Equal(t, uint(0), record.RemindersSent)

	// Same-day re-run creates no second reminder.
	result, err = f.sweeper.Run(ctx, sweepNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, result.RemindersSent)
	assert.Len(t, notificationsOfKind(t, f, userID, models.KindUpcomingReminder), 1)
}

func TestSweep_UpcomingReminderOnlyAtOffsets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Due in 12 days: not one of the {30,14,7,1} marks.
	userID := f.seedRecord(t, 12*24*time.Hour, 0, models.DefaultPolicy())

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RemindersSent)
	assert.Empty(t, notificationsOfKind(t, f, userID, models.KindUpcomingReminder))
}

func TestSweep_GraceWindowReminder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedRecord(t, -5*24*time.Hour, 1, models.DefaultPolicy())

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RemindersSent)

	record, err := f.store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, record.Status)
	assert.Equal(t, uint(2), record.RemindersSent)

	reminders := notificationsOfKind(t, f, userID, models.KindOverdueReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, models.RecipientUser, reminders[0].RecipientClass)
}

func TestSweep_GraceWindowWithSpentBudgetWaits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Budget exhausted but grace still running: nothing may happen yet.
	userID := f.seedRecord(t, -5*24*time.Hour, 4, models.DefaultPolicy())
	f.addFamilyBeneficiary(userID, "Dana")

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Triggered)
	assert.Equal(t, 0, result.RemindersSent)
	assert.Equal(t, 0, result.FamilyAlerts)

	record, err := f.store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, record.Status)
}

func TestSweep_PrivacyBranchSuppressesFamily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	policy := models.DefaultPolicy()
	policy.AlertFamilyWhenOverdue = false

	userID := f.seedRecord(t, -40*24*time.Hour, 2, policy)
	f.addFamilyBeneficiary(userID, "Dana")

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FamilyAlerts)
	assert.Equal(t, 0, result.ProfessionalAlerts)
	assert.Equal(t, 1, result.PrivacyRespected)

	// No family-class record exists before the terminal trigger fires.
	all, err := f.store.ListNotifications(ctx, userID)
	require.NoError(t, err)
	for _, n := range all {
		assert.NotEqual(t, models.RecipientFamily, n.RecipientClass)
	}
}

func TestSweep_SeparateChannelsSplitsAlerts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	attorney := models.Contact{ID: id.NewContactID(), Name: "Alex", Relationship: "attorney"}
	policy := models.DefaultPolicy()
	policy.SeparateChannels = true
	policy.ProfessionalContactIDs = []id.ContactID{attorney.ID}

	userID := f.seedRecord(t, -40*24*time.Hour, 2, policy)
	f.addFamilyBeneficiary(userID, "Dana")
	// The attorney also appears in the family list; separate channels must
	// exclude them from the family variant.
	f.directory.AddFamilyContact(userID, attorney)
	f.directory.AddProfessionalContact(userID, attorney)

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FamilyAlerts)
	assert.Equal(t, 1, result.ProfessionalAlerts)

	assert.Len(t, notificationsOfKind(t, f, userID, models.KindFamilyConcern), 1)
	assert.Len(t, notificationsOfKind(t, f, userID, models.KindProfessionalConcern), 1)
}

func TestSweep_DispatchFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedRecord(t, -40*24*time.Hour, 2, models.DefaultPolicy())
	dana := f.addFamilyBeneficiary(userID, "Dana")
	f.addFamilyBeneficiary(userID, "Sam")
	f.dispatcher.FailFor(dana, errors.New("mailbox unavailable"))

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FamilyAlerts) // only the successful delivery counts
	assert.Equal(t, 0, result.Failures)     // a failed dispatch is recorded, not a record failure

	concerns := notificationsOfKind(t, f, userID, models.KindFamilyConcern)
	require.Len(t, concerns, 2)
	statuses := map[id.ContactID]models.DeliveryStatus{}
	for _, n := range concerns {
		statuses[n.RecipientID] = n.DeliveryStatus
	}
	assert.Equal(t, models.DeliveryFailed, statuses[dana.ID])
}

func TestSweep_DoubleRunDoesNotDoubleFire(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedRecord(t, -40*24*time.Hour, 4, models.DefaultPolicy())
	f.addFamilyBeneficiary(userID, "Dana")

	first, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Triggered)

	second, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Triggered)

	events, err := f.store.ListReleaseEvents(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSweep_MixedBatchIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	triggering := f.seedRecord(t, -40*24*time.Hour, 4, models.DefaultPolicy())
	f.addFamilyBeneficiary(triggering, "Dana")
	alerting := f.seedRecord(t, -40*24*time.Hour, 1, models.DefaultPolicy())
	f.addFamilyBeneficiary(alerting, "Sam")
	healthy := f.seedRecord(t, 60*24*time.Hour, 0, models.DefaultPolicy())

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Triggered)
	assert.Equal(t, 1, result.FamilyAlerts)

	record, err := f.store.Get(ctx, healthy)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, record.Status)
}

type heldLock struct{}

func (heldLock) TryAcquire(context.Context, time.Duration) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error                          { return nil }

func TestSweep_SkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userID := f.seedRecord(t, -40*24*time.Hour, 4, models.DefaultPolicy())
	f.addFamilyBeneficiary(userID, "Dana")

	WithSweepLock(heldLock{}, time.Minute)(f.sweeper)

	result, err := f.sweeper.Run(ctx, sweepNow)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)

	record, err := f.store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, record.Status)
}
