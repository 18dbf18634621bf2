package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ardhi/internal/approval"
	regionmodels "ardhi/internal/region/models"
	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
)

func newTestParcel(t *testing.T) *Parcel {
	t.Helper()
	p, err := NewParcel(
		id.ParcelID(uuid.New()),
		"NAI00000001",
		"LR/2024/0001",
		regionmodels.Location{County: "Nairobi", SubCounty: "Westlands", Constituency: "Westlands", Ward: "Parklands"},
		id.UserID(uuid.New()),
		"Wanjiku Kamau",
		time.Now(),
	)
	require.NoError(t, err)
	return p
}

func TestNewParcel(t *testing.T) {
	t.Run("starts pending county approval and active", func(t *testing.T) {
		p := newTestParcel(t)
		assert.Equal(t, approval.StatusPendingCounty, p.ApprovalStatus)
		assert.Equal(t, StatusActive, p.Status)
		assert.Empty(t, p.TransferHistory)
	})

	t.Run("requires title number", func(t *testing.T) {
		_, err := NewParcel(id.ParcelID(uuid.New()), "", "LR/1", regionmodels.Location{}, id.UserID(uuid.New()), "x", time.Now())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("requires owner", func(t *testing.T) {
		_, err := NewParcel(id.ParcelID(uuid.New()), "NAI1", "LR/1", regionmodels.Location{}, id.UserID{}, "x", time.Now())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestIsTransferable(t *testing.T) {
	p := newTestParcel(t)

	assert.False(t, p.IsTransferable(), "unapproved parcel is not transferable")

	p.ApprovalStatus = approval.StatusApproved
	assert.True(t, p.IsTransferable())

	p.ApplyLock(time.Now())
	assert.False(t, p.IsTransferable(), "locked parcel is not transferable")

	p.ApplyRelease(time.Now())
	assert.True(t, p.IsTransferable())

	p.ApplyArchive(time.Now())
	assert.False(t, p.IsTransferable(), "archived parcel is not transferable")
}

func TestIsTransferable_FraudIsOverlayOnly(t *testing.T) {
	p := newTestParcel(t)
	p.ApprovalStatus = approval.StatusApproved
	p.ApplyFraudFlag(id.UserID(uuid.New()), "suspected forgery", time.Now())

	// The fraud flag informs verifiers; it does not gate eligibility.
	assert.True(t, p.IsTransferable())
}

func TestApplyOwnershipTransfer(t *testing.T) {
	p := newTestParcel(t)
	p.ApprovalStatus = approval.StatusApproved
	seller := p.Owner
	buyer := id.UserID(uuid.New())
	now := time.Now()

	p.ApplyLock(now)
	require.NoError(t, p.CanTransferOwnership(seller))

	p.ApplyOwnershipTransfer(buyer, "Otieno Odhiambo", now)

	assert.Equal(t, buyer, p.Owner)
	assert.Equal(t, "Otieno Odhiambo", p.OwnerName)
	assert.Equal(t, StatusActive, p.Status, "lock is released with the flip")
	require.Len(t, p.TransferHistory, 1)
	assert.Equal(t, seller, p.TransferHistory[0].From)
	assert.Equal(t, buyer, p.TransferHistory[0].To)
}

func TestCanTransferOwnership(t *testing.T) {
	p := newTestParcel(t)
	p.ApprovalStatus = approval.StatusApproved

	err := p.CanTransferOwnership(p.Owner)
	require.Error(t, err, "unlocked parcel has no active transfer")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	p.ApplyLock(time.Now())
	err = p.CanTransferOwnership(id.UserID(uuid.New()))
	require.Error(t, err, "only the current owner can be the seller")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestFraudOverlay(t *testing.T) {
	p := newTestParcel(t)
	admin := id.UserID(uuid.New())

	require.NoError(t, p.CanFlagFraud())
	p.ApplyFraudFlag(admin, "forged title deed", time.Now())
	assert.True(t, p.IsFraudulent)
	assert.Equal(t, "forged title deed", p.FraudReason)
	assert.Equal(t, admin, p.FlaggedBy)
	require.Error(t, p.CanFlagFraud(), "double flag rejected")

	require.NoError(t, p.CanClearFraud())
	p.ApplyFraudClear("cleared after document review", time.Now())
	assert.False(t, p.IsFraudulent)
	assert.Nil(t, p.FlaggedAt)
	require.Error(t, p.CanClearFraud())
}

func TestCanArchive(t *testing.T) {
	p := newTestParcel(t)
	p.ApprovalStatus = approval.StatusApproved

	p.ApplyLock(time.Now())
	err := p.CanArchive()
	require.Error(t, err, "parcel mid-transfer cannot be archived")

	p.ApplyRelease(time.Now())
	require.NoError(t, p.CanArchive())
	p.ApplyArchive(time.Now())
	require.Error(t, p.CanArchive(), "already archived")
}
