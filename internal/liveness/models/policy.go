package models

import (
	id "heirloom/pkg/domain"
	dErrors "heirloom/pkg/domain-errors"
)

// AlertType selects the message variant on the standard escalation path.
type AlertType string

const (
	AlertTypeConcern           AlertType = "concern"
	AlertTypeDirectInheritance AlertType = "direct_inheritance"
)

// EscalationPolicy is the user-configured rule set governing who gets alerted
// and how once check-ins are missed. It is owned 1:1 by a LivenessRecord.
type EscalationPolicy struct {
	AlertFamilyWhenOverdue bool
	AlertType              AlertType
	AllowWellnessChecks    bool
	InheritanceOnlyMode    bool
	// CustomMessage, when set, is appended verbatim to every family-facing
	// message body.
	CustomMessage    string
	ProfessionalOnly bool
	// ProfessionalContactIDs is the set of contacts eligible for the distinct
	// professional channel (attorney, physician, ...).
	ProfessionalContactIDs []id.ContactID
	// ProfessionalMessage, when set, is appended verbatim to professional
	// messages instead of CustomMessage.
	ProfessionalMessage string
	// SeparateChannels sends distinct variants to professional vs. family
	// recipients instead of one undifferentiated message.
	SeparateChannels bool
}

// DefaultPolicy is the policy applied at onboarding when the user supplies
// none.
func DefaultPolicy() EscalationPolicy {
	return EscalationPolicy{
		AlertFamilyWhenOverdue: true,
		AlertType:              AlertTypeConcern,
		AllowWellnessChecks:    true,
	}
}

// HasProfessionals reports whether any professional contacts are configured.
func (p EscalationPolicy) HasProfessionals() bool {
	return len(p.ProfessionalContactIDs) > 0
}

// IsProfessional reports whether the contact belongs to the professional set.
func (p EscalationPolicy) IsProfessional(contactID id.ContactID) bool {
	for _, pid := range p.ProfessionalContactIDs {
		if pid == contactID {
			return true
		}
	}
	return false
}

// Clone deep-copies the policy (the contact slice is the only reference).
func (p EscalationPolicy) Clone() EscalationPolicy {
	cp := p
	cp.ProfessionalContactIDs = append([]id.ContactID(nil), p.ProfessionalContactIDs...)
	return cp
}

// Validate rejects configurations that would silently decide to notify
// nobody. Checked at update time, not decision time, so the user learns about
// the problem while they can still fix it.
func (p EscalationPolicy) Validate() error {
	switch p.AlertType {
	case AlertTypeConcern, AlertTypeDirectInheritance:
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "alert_type must be concern or direct_inheritance")
	}
	if p.ProfessionalOnly && !p.HasProfessionals() {
		return dErrors.New(dErrors.CodeInvalidInput, "professional_only requires at least one professional contact")
	}
	return nil
}

// PolicyPatch carries a partial policy update. Nil fields are preserved from
// the existing policy; this is a merge, not a replacement.
type PolicyPatch struct {
	AlertFamilyWhenOverdue *bool           `json:"alertFamilyWhenOverdue,omitempty"`
	AlertType              *AlertType      `json:"alertType,omitempty"`
	AllowWellnessChecks    *bool           `json:"allowWellnessChecks,omitempty"`
	InheritanceOnlyMode    *bool           `json:"inheritanceOnlyMode,omitempty"`
	CustomMessage          *string         `json:"customMessage,omitempty"`
	ProfessionalOnly       *bool           `json:"professionalOnly,omitempty"`
	ProfessionalContactIDs *[]id.ContactID `json:"professionalContactIds,omitempty"`
	ProfessionalMessage    *string         `json:"professionalMessage,omitempty"`
	SeparateChannels       *bool           `json:"separateChannels,omitempty"`
}

// Apply merges the patch onto p and returns the result. p is not modified.
func (p EscalationPolicy) Apply(patch PolicyPatch) EscalationPolicy {
	merged := p.Clone()
	if patch.AlertFamilyWhenOverdue != nil {
		merged.AlertFamilyWhenOverdue = *patch.AlertFamilyWhenOverdue
	}
	if patch.AlertType != nil {
		merged.AlertType = *patch.AlertType
	}
	if patch.AllowWellnessChecks != nil {
		merged.AllowWellnessChecks = *patch.AllowWellnessChecks
	}
	if patch.InheritanceOnlyMode != nil {
		merged.InheritanceOnlyMode = *patch.InheritanceOnlyMode
	}
	if patch.CustomMessage != nil {
		merged.CustomMessage = *patch.CustomMessage
	}
	if patch.ProfessionalOnly != nil {
		merged.ProfessionalOnly = *patch.ProfessionalOnly
	}
	if patch.ProfessionalContactIDs != nil {
		merged.ProfessionalContactIDs = append([]id.ContactID(nil), (*patch.ProfessionalContactIDs)...)
	}
	if patch.ProfessionalMessage != nil {
		merged.ProfessionalMessage = *patch.ProfessionalMessage
	}
	if patch.SeparateChannels != nil {
		merged.SeparateChannels = *patch.SeparateChannels
	}
	return merged
}
