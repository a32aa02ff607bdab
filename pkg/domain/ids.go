// Package domain defines the typed identifiers shared across the liveness
// engine. Each ID wraps uuid.UUID so the compiler keeps user, contact, and
// asset identifiers from being mixed up at call sites.
package domain

import (
	"github.com/google/uuid"

	dErrors "heirloom/pkg/domain-errors"
)

type (
	// UserID identifies an account holder. One LivenessRecord exists per user.
	UserID uuid.UUID

	// RecordID identifies a LivenessRecord.
	RecordID uuid.UUID

	// ContactID identifies a family or professional contact.
	ContactID uuid.UUID

	// AssetID identifies an asset held by a user.
	AssetID uuid.UUID

	// BeneficiaryID identifies a beneficiary of an asset.
	BeneficiaryID uuid.UUID

	// NotificationID identifies an append-only NotificationRecord.
	NotificationID uuid.UUID

	// ReleaseEventID identifies an InheritanceReleaseEvent.
	ReleaseEventID uuid.UUID
)

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. All ParseXxxID functions funnel through here so every ID
// type rejects the same inputs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s)
	return RecordID(u), err
}

func ParseContactID(s string) (ContactID, error) {
	u, err := parseUUID(s)
	return ContactID(u), err
}

func ParseAssetID(s string) (AssetID, error) {
	u, err := parseUUID(s)
	return AssetID(u), err
}

func ParseBeneficiaryID(s string) (BeneficiaryID, error) {
	u, err := parseUUID(s)
	return BeneficiaryID(u), err
}

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewRecordID() RecordID             { return RecordID(uuid.New()) }
func NewContactID() ContactID           { return ContactID(uuid.New()) }
func NewAssetID() AssetID               { return AssetID(uuid.New()) }
func NewBeneficiaryID() BeneficiaryID   { return BeneficiaryID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }
func NewReleaseEventID() ReleaseEventID { return ReleaseEventID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id RecordID) String() string       { return uuid.UUID(id).String() }
func (id ContactID) String() string      { return uuid.UUID(id).String() }
func (id AssetID) String() string        { return uuid.UUID(id).String() }
func (id BeneficiaryID) String() string  { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id ReleaseEventID) String() string { return uuid.UUID(id).String() }

// MarshalText implementations keep the IDs rendering as canonical UUID
// strings in JSON; named types do not inherit uuid.UUID's methods.
func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id RecordID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id ContactID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id AssetID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id BeneficiaryID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id NotificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ReleaseEventID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = u
	return nil
}

func (id *ContactID) UnmarshalText(b []byte) error {
	u, err := ParseContactID(string(b))
	if err != nil {
		return err
	}
	*id = u
	return nil
}

func (id *BeneficiaryID) UnmarshalText(b []byte) error {
	u, err := ParseBeneficiaryID(string(b))
	if err != nil {
		return err
	}
	*id = u
	return nil
}

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ContactID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AssetID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id BeneficiaryID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReleaseEventID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
