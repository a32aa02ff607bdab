package handler

import (
	"time"

	"heirloom/internal/liveness/models"
	id "heirloom/pkg/domain"
)

type policyResponse struct {
	AlertFamilyWhenOverdue bool             `json:"alertFamilyWhenOverdue"`
	AlertType              models.AlertType `json:"alertType"`
	AllowWellnessChecks    bool             `json:"allowWellnessChecks"`
	InheritanceOnlyMode    bool             `json:"inheritanceOnlyMode"`
	CustomMessage          string           `json:"customMessage,omitempty"`
	ProfessionalOnly       bool             `json:"professionalOnly"`
	ProfessionalContactIDs []id.ContactID   `json:"professionalContactIds,omitempty"`
	ProfessionalMessage    string           `json:"professionalMessage,omitempty"`
	SeparateChannels       bool             `json:"separateChannels"`
}

type recordResponse struct {
	UserID          id.UserID      `json:"userId"`
	Status          models.Status  `json:"status"`
	LastCheckinAt   time.Time      `json:"lastCheckinAt"`
	NextDueAt       time.Time      `json:"nextDueAt"`
	RemindersSent   uint           `json:"remindersSent"`
	MaxReminders    uint           `json:"maxReminders"`
	GracePeriodDays uint           `json:"gracePeriodDays"`
	IsActive        bool           `json:"isActive"`
	// Warning is derived from the due date at response time, never stored.
	Warning string         `json:"warning"`
	Policy  policyResponse `json:"policy"`
}

func toRecordResponse(record *models.LivenessRecord, now time.Time) recordResponse {
	return recordResponse{
		UserID:          record.UserID,
		Status:          record.Status,
		LastCheckinAt:   record.LastCheckinAt,
		NextDueAt:       record.NextDueAt,
		RemindersSent:   record.RemindersSent,
		MaxReminders:    record.MaxReminders,
		GracePeriodDays: record.GracePeriodDays,
		IsActive:        record.IsActive,
		Warning:         record.WarningLabel(now),
		Policy: policyResponse{
			AlertFamilyWhenOverdue: record.Policy.AlertFamilyWhenOverdue,
			AlertType:              record.Policy.AlertType,
			AllowWellnessChecks:    record.Policy.AllowWellnessChecks,
			InheritanceOnlyMode:    record.Policy.InheritanceOnlyMode,
			CustomMessage:          record.Policy.CustomMessage,
			ProfessionalOnly:       record.Policy.ProfessionalOnly,
			ProfessionalContactIDs: record.Policy.ProfessionalContactIDs,
			ProfessionalMessage:    record.Policy.ProfessionalMessage,
			SeparateChannels:       record.Policy.SeparateChannels,
		},
	}
}

type notificationResponse struct {
	ID                   id.NotificationID       `json:"id"`
	RecipientID          id.ContactID            `json:"recipientId"`
	RecipientClass       models.RecipientClass   `json:"recipientClass"`
	Kind                 models.NotificationKind `json:"kind"`
	SentAt               time.Time               `json:"sentAt"`
	RequiresAction       bool                    `json:"requiresAction"`
	TriggeredInheritance bool                    `json:"triggeredInheritance"`
	PrivacyRespected     bool                    `json:"privacyRespected"`
	DeliveryStatus       models.DeliveryStatus   `json:"deliveryStatus"`
}

func toNotificationsResponse(notifications []*models.NotificationRecord) []notificationResponse {
	out := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationResponse{
			ID:                   n.ID,
			RecipientID:          n.RecipientID,
			RecipientClass:       n.RecipientClass,
			Kind:                 n.Kind,
			SentAt:               n.SentAt,
			RequiresAction:       n.RequiresAction,
			TriggeredInheritance: n.TriggeredInheritance,
			PrivacyRespected:     n.PrivacyRespected,
			DeliveryStatus:       n.DeliveryStatus,
		})
	}
	return out
}
