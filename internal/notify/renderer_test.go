package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heirloom/internal/liveness/models"
	"heirloom/internal/liveness/ports"
	"heirloom/internal/notify"
	id "heirloom/pkg/domain"
)

func TestPlainRenderer(t *testing.T) {
	r := notify.NewPlainRenderer()
	recipient := models.Contact{ID: id.NewContactID(), Name: "Margaret", Email: "margaret.chen@example.com"}

	t.Run("renders every kind", func(t *testing.T) {
		kinds := []models.NotificationKind{
			models.KindUpcomingReminder,
			models.KindOverdueReminder,
			models.KindFamilyConcern,
			models.KindProfessionalConcern,
			models.KindDirectInheritanceNotice,
			models.KindInheritanceTriggered,
			models.KindProfessionalInheritanceNote,
		}
		for _, kind := range kinds {
			msg, err := r.Render(kind, ports.RenderContext{Recipient: recipient, DaysPastDue: 3})
			require.NoError(t, err, "kind %s", kind)
			assert.NotEmpty(t, msg.Subject)
			assert.NotEmpty(t, msg.Body)
		}
	})

	t.Run("greets by name", func(t *testing.T) {
		msg, err := r.Render(models.KindOverdueReminder, ports.RenderContext{Recipient: recipient, DaysPastDue: 2})
		require.NoError(t, err)
		assert.Contains(t, msg.Body, "Margaret")
		assert.Contains(t, msg.Body, "2 day(s) overdue")
	})

	t.Run("derives greeting from email when name is empty", func(t *testing.T) {
		anon := models.Contact{ID: id.NewContactID(), Email: "robert_kim@example.com"}
		msg, err := r.Render(models.KindFamilyConcern, ports.RenderContext{Recipient: anon})
		require.NoError(t, err)
		assert.Contains(t, msg.Body, "Robert")
	})

	t.Run("falls back to generic greeting", func(t *testing.T) {
		anon := models.Contact{ID: id.NewContactID()}
		msg, err := r.Render(models.KindFamilyConcern, ports.RenderContext{Recipient: anon})
		require.NoError(t, err)
		assert.Contains(t, msg.Body, "Hi there,")
	})

	t.Run("appends custom message as final paragraph", func(t *testing.T) {
		msg, err := r.Render(models.KindInheritanceTriggered, ports.RenderContext{
			Recipient:     recipient,
			AppendMessage: "The deed is in the safe.",
		})
		require.NoError(t, err)
		assert.True(t, len(msg.Body) > len("The deed is in the safe."))
		assert.Contains(t, msg.Body, "\n\nThe deed is in the safe.")
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := r.Render(models.NotificationKind("carrier_pigeon"), ports.RenderContext{Recipient: recipient})
		assert.Error(t, err)
	})
}
