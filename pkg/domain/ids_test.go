package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ardhi/pkg/domain-errors"
)

func TestParseUserID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseUserID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(valid), id)
	})
}

func TestParseParcelAndTransferIDs(t *testing.T) {
	valid := uuid.New()

	pid, err := ParseParcelID(valid.String())
	require.NoError(t, err)
	assert.Equal(t, ParcelID(valid), pid)
	assert.False(t, pid.IsNil())

	tid, err := ParseTransferID(valid.String())
	require.NoError(t, err)
	assert.Equal(t, TransferID(valid), tid)

	_, err = ParseTransferID("")
	require.Error(t, err)
}

// TestTypeDistinction verifies the compiler enforces type safety.
// If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	parcelID := ParcelID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ UserID = parcelID   // compile error
	// var _ ParcelID = userID   // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(parcelID))
}
