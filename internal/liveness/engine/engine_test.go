package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"heirloom/internal/liveness/models"
	id "heirloom/pkg/domain"
)

func professionals(n int) []id.ContactID {
	out := make([]id.ContactID, n)
	for i := range out {
		out[i] = id.NewContactID()
	}
	return out
}

func TestDecide_FamilySuppressed(t *testing.T) {
	t.Run("with professionals, alert phase", func(t *testing.T) {
		policy := models.DefaultPolicy()
		policy.AlertFamilyWhenOverdue = false
		policy.ProfessionalContactIDs = professionals(2)

		d := Decide(policy, PhaseAlert)

		assert.False(t, d.NotifyFamily)
		assert.True(t, d.NotifyProfessional)
		assert.Equal(t, models.KindProfessionalConcern, d.ProfessionalKind)
		assert.False(t, d.FireTrigger)
		assert.True(t, d.PrivacyRespected)
		assert.Equal(t, BranchFamilySuppressed, d.Branch)
	})

	t.Run("with professionals, trigger phase", func(t *testing.T) {
		policy := models.DefaultPolicy()
		policy.AlertFamilyWhenOverdue = false
		policy.ProfessionalContactIDs = professionals(1)

		d := Decide(policy, PhaseTrigger)

		assert.False(t, d.NotifyFamily)
		assert.True(t, d.NotifyProfessional)
		assert.Equal(t, models.KindProfessionalInheritanceNote, d.ProfessionalKind)
		assert.True(t, d.FireTrigger)
		assert.True(t, d.PrivacyRespected)
	})

	t.Run("no professionals means nobody is notified, trigger still fires", func(t *testing.T) {
		policy := models.DefaultPolicy()
		policy.AlertFamilyWhenOverdue = false

		d := Decide(policy, PhaseTrigger)

		assert.False(t, d.NotifyFamily)
		assert.False(t, d.NotifyProfessional)
		assert.True(t, d.FireTrigger)
		assert.True(t, d.PrivacyRespected)
	})
}

func TestDecide_ProfessionalOnly(t *testing.T) {
	policy := models.DefaultPolicy()
	policy.ProfessionalOnly = true
	policy.ProfessionalContactIDs = professionals(1)

	for _, phase := range []Phase{PhaseAlert, PhaseTrigger} {
		d := Decide(policy, phase)

		assert.False(t, d.NotifyFamily, "phase %s", phase)
		assert.True(t, d.NotifyProfessional, "phase %s", phase)
		assert.True(t, d.PrivacyRespected, "phase %s", phase)
		assert.Equal(t, phase == PhaseTrigger, d.FireTrigger, "phase %s", phase)
		assert.Equal(t, BranchProfessionalOnly, d.Branch)
	}
}

// professionalOnly short-circuits before inheritanceOnlyMode; when both flags
// are set the professional-only branch wins.
func TestDecide_ProfessionalOnlyBeatsInheritanceOnly(t *testing.T) {
	policy := models.DefaultPolicy()
	policy.ProfessionalOnly = true
	policy.InheritanceOnlyMode = true
	policy.ProfessionalContactIDs = professionals(1)

	d := Decide(policy, PhaseAlert)
	assert.Equal(t, BranchProfessionalOnly, d.Branch)
	assert.False(t, d.NotifyFamily)
}

func TestDecide_InheritanceOnly(t *testing.T) {
	t.Run("alert phase sends direct notice, no concern messaging", func(t *testing.T) {
		policy := models.DefaultPolicy()
		policy.InheritanceOnlyMode = true

		d := Decide(policy, PhaseAlert)

		assert.True(t, d.NotifyFamily)
		assert.Equal(t, models.KindDirectInheritanceNotice, d.FamilyKind)
		assert.False(t, d.NotifyProfessional)
		assert.True(t, d.PrivacyRespected)
		assert.Equal(t, BranchInheritanceOnly, d.Branch)
	})

	t.Run("separate channels adds professional notice", func(t *testing.T) {
		policy := models.DefaultPolicy()
		policy.InheritanceOnlyMode = true
		policy.SeparateChannels = true
		policy.ProfessionalContactIDs = professionals(1)

		d := Decide(policy, PhaseAlert)

		assert.True(t, d.NotifyFamily)
		assert.True(t, d.NotifyProfessional)
		assert.Equal(t, models.KindProfessionalInheritanceNote, d.ProfessionalKind)
		assert.True(t, d.ExcludeProfessionalsFromFamily)
	})

	t.Run("separate channels without professionals stays family only", func(t *testing.T) {
		policy := models.DefaultPolicy()
		policy.InheritanceOnlyMode = true
		policy.SeparateChannels = true

		d := Decide(policy, PhaseAlert)

		assert.True(t, d.NotifyFamily)
		assert.False(t, d.NotifyProfessional)
	})

	t.Run("trigger phase", func(t *testing.T) {
		policy := models.DefaultPolicy()
		policy.InheritanceOnlyMode = true

		d := Decide(policy, PhaseTrigger)

		assert.Equal(t, models.KindInheritanceTriggered, d.FamilyKind)
		assert.True(t, d.FireTrigger)
	})
}

func TestDecide_Standard(t *testing.T) {
	cases := []struct {
		name       string
		alertType  models.AlertType
		phase      Phase
		familyKind models.NotificationKind
	}{
		{"concern alert", models.AlertTypeConcern, PhaseAlert, models.KindFamilyConcern},
		{"direct inheritance alert", models.AlertTypeDirectInheritance, PhaseAlert, models.KindDirectInheritanceNotice},
		{"concern trigger", models.AlertTypeConcern, PhaseTrigger, models.KindInheritanceTriggered},
		{"direct inheritance trigger", models.AlertTypeDirectInheritance, PhaseTrigger, models.KindInheritanceTriggered},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := models.DefaultPolicy()
			policy.AlertType = tc.alertType

			d := Decide(policy, tc.phase)

			assert.True(t, d.NotifyFamily)
			assert.Equal(t, tc.familyKind, d.FamilyKind)
			assert.False(t, d.NotifyProfessional, "undifferentiated path has no professional channel")
			assert.False(t, d.PrivacyRespected, "standard path suppresses nothing")
			assert.Equal(t, tc.phase == PhaseTrigger, d.FireTrigger)
			assert.Equal(t, BranchStandard, d.Branch)
		})
	}

	t.Run("separate channels splits variants and recipient sets", func(t *testing.T) {
		policy := models.DefaultPolicy()
		policy.SeparateChannels = true
		policy.ProfessionalContactIDs = professionals(2)

		d := Decide(policy, PhaseAlert)

		assert.True(t, d.NotifyFamily)
		assert.True(t, d.NotifyProfessional)
		assert.Equal(t, models.KindFamilyConcern, d.FamilyKind)
		assert.Equal(t, models.KindProfessionalConcern, d.ProfessionalKind)
		assert.True(t, d.ExcludeProfessionalsFromFamily)
		assert.False(t, d.PrivacyRespected)
	})
}
