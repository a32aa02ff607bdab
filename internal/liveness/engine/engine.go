// Package engine holds the escalation decision rules. Everything here is pure
// domain logic - no I/O, no side effects - so the privacy branches stay
// testable without storage or transport fakes.
package engine

import "heirloom/internal/liveness/models"

// Phase distinguishes the two escalation stages the sweep can reach: alert
// (past grace, reminder budget remains) and trigger (budget exhausted).
type Phase string

const (
	PhaseAlert   Phase = "alert"
	PhaseTrigger Phase = "trigger"
)

// Branch names the policy rule that produced a decision; it lands in the
// audit trail so a suppressed notification can be traced to its rule.
type Branch string

const (
	BranchFamilySuppressed Branch = "family_suppressed"
	BranchProfessionalOnly Branch = "professional_only"
	BranchInheritanceOnly  Branch = "inheritance_only"
	BranchStandard         Branch = "standard"
)

// Decision is the engine output: which recipient classes to notify, with
// which variants, and whether the terminal trigger fires.
type Decision struct {
	NotifyFamily       bool
	NotifyProfessional bool

	FamilyKind       models.NotificationKind
	ProfessionalKind models.NotificationKind

	FireTrigger bool

	// PrivacyRespected is true when this decision suppressed messaging the
	// standard path would have sent; it propagates onto every notification
	// record the decision produces.
	PrivacyRespected bool

	// ExcludeProfessionalsFromFamily removes professional contact IDs from
	// the family recipient set so nobody receives both variants.
	ExcludeProfessionalsFromFamily bool

	Branch Branch
}

// Decide applies the escalation policy for the given phase.
//
// Rule priority (first match wins):
//  1. Family alerts disabled - only professionals (if any) hear anything.
//  2. Professional-only mode.
//  3. Inheritance-only mode - no concern messaging, straight to notices.
//  4. Standard path - variant follows policy.AlertType.
//
// professionalOnly deliberately short-circuits before inheritanceOnlyMode;
// the interaction of the two flags when both are set follows that ordering.
func Decide(policy models.EscalationPolicy, phase Phase) Decision {
	fire := phase == PhaseTrigger

	if !policy.AlertFamilyWhenOverdue {
		return Decision{
			NotifyProfessional: policy.HasProfessionals(),
			ProfessionalKind:   professionalKind(phase),
			FireTrigger:        fire,
			PrivacyRespected:   true,
			Branch:             BranchFamilySuppressed,
		}
	}

	if policy.ProfessionalOnly {
		return Decision{
			NotifyProfessional: true,
			ProfessionalKind:   professionalKind(phase),
			FireTrigger:        fire,
			PrivacyRespected:   true,
			Branch:             BranchProfessionalOnly,
		}
	}

	if policy.InheritanceOnlyMode {
		d := Decision{
			NotifyFamily:     true,
			FamilyKind:       familyInheritanceKind(phase),
			FireTrigger:      fire,
			PrivacyRespected: true,
			Branch:           BranchInheritanceOnly,
		}
		if policy.SeparateChannels && policy.HasProfessionals() {
			d.NotifyProfessional = true
			d.ProfessionalKind = models.KindProfessionalInheritanceNote
			d.ExcludeProfessionalsFromFamily = true
		}
		return d
	}

	// Standard path: nothing is suppressed.
	d := Decision{
		NotifyFamily: true,
		FamilyKind:   standardFamilyKind(policy.AlertType, phase),
		FireTrigger:  fire,
		Branch:       BranchStandard,
	}
	if policy.SeparateChannels && policy.HasProfessionals() {
		d.NotifyProfessional = true
		d.ProfessionalKind = standardProfessionalKind(policy.AlertType, phase)
		d.ExcludeProfessionalsFromFamily = true
	}
	return d
}

func professionalKind(phase Phase) models.NotificationKind {
	if phase == PhaseTrigger {
		return models.KindProfessionalInheritanceNote
	}
	return models.KindProfessionalConcern
}

func familyInheritanceKind(phase Phase) models.NotificationKind {
	if phase == PhaseTrigger {
		return models.KindInheritanceTriggered
	}
	return models.KindDirectInheritanceNotice
}

func standardFamilyKind(alertType models.AlertType, phase Phase) models.NotificationKind {
	if phase == PhaseTrigger {
		return models.KindInheritanceTriggered
	}
	if alertType == models.AlertTypeDirectInheritance {
		return models.KindDirectInheritanceNotice
	}
	return models.KindFamilyConcern
}

func standardProfessionalKind(alertType models.AlertType, phase Phase) models.NotificationKind {
	if phase == PhaseTrigger {
		return models.KindProfessionalInheritanceNote
	}
	if alertType == models.AlertTypeDirectInheritance {
		return models.KindProfessionalInheritanceNote
	}
	return models.KindProfessionalConcern
}
