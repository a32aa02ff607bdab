package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "heirloom/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

// TestParseConsistency verifies every ID type funnels through the same
// validation, so a string accepted as one ID type is accepted by all.
func TestParseConsistency(t *testing.T) {
	inputs := []string{"", "invalid", uuid.Nil.String(), uuid.NewString()}

	for _, input := range inputs {
		_, errUser := ParseUserID(input)
		_, errRecord := ParseRecordID(input)
		_, errContact := ParseContactID(input)
		_, errAsset := ParseAssetID(input)
		_, errBeneficiary := ParseBeneficiaryID(input)

		if errUser == nil {
			assert.NoError(t, errRecord, "input %q", input)
			assert.NoError(t, errContact, "input %q", input)
			assert.NoError(t, errAsset, "input %q", input)
			assert.NoError(t, errBeneficiary, "input %q", input)
		} else {
			assert.Error(t, errRecord, "input %q", input)
			assert.Error(t, errContact, "input %q", input)
			assert.Error(t, errAsset, "input %q", input)
			assert.Error(t, errBeneficiary, "input %q", input)
		}
	}
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	contactID := ContactID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ UserID = contactID   // compile error
	// var _ ContactID = userID   // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(contactID))
}
