//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identitymodels "ardhi/internal/identity/models"
	identitystore "ardhi/internal/identity/store"
	parcelmodels "ardhi/internal/parcel/models"
	parcelstore "ardhi/internal/parcel/store"
	regionmodels "ardhi/internal/region/models"
	"ardhi/internal/transfer/models"
	id "ardhi/pkg/domain"
	"ardhi/pkg/platform/sentinel"
	"ardhi/pkg/testutil/containers"
)

type pgFixture struct {
	store  *PostgresStore
	parcel *parcelmodels.Parcel
	seller *identitymodels.User
	buyer  *identitymodels.User
}

func newPgFixture(t *testing.T) *pgFixture {
	t.Helper()

	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	users := identitystore.NewPostgres(pg.DB)
	seller := &identitymodels.User{
		ID: id.UserID(uuid.New()), Name: "Wanjiku Kamau",
		NationalID: "12345678", KraPin: "A001234567B", Role: identitymodels.RoleUser,
		CreatedAt: time.Now(),
	}
	buyer := &identitymodels.User{
		ID: id.UserID(uuid.New()), Name: "Otieno Odhiambo",
		NationalID: "87654321", KraPin: "A009876543C", Role: identitymodels.RoleUser,
		CreatedAt: time.Now(),
	}
	require.NoError(t, users.Create(ctx, seller))
	require.NoError(t, users.Create(ctx, buyer))

	parcels := parcelstore.NewPostgres(pg.DB)
	parcel, err := parcelmodels.NewParcel(id.ParcelID(uuid.New()), "NAI00000001", "LR/209/1",
		regionmodels.Location{County: "Nairobi", SubCounty: "Westlands", Constituency: "Westlands", Ward: "Parklands"},
		seller.ID, seller.Name, time.Now())
	require.NoError(t, err)
	require.NoError(t, parcels.Create(ctx, parcel))

	return &pgFixture{store: NewPostgres(pg.DB), parcel: parcel, seller: seller, buyer: buyer}
}

func (f *pgFixture) newTransfer() *models.Transfer {
	return models.NewTransfer(id.TransferID(uuid.New()), "TRF-"+uuid.NewString()[:8],
		f.parcel.ID, "Nairobi",
		f.seller.ID, f.seller.Name,
		f.buyer.ID, f.buyer.Name, f.buyer.NationalID, f.buyer.KraPin,
		2_500_000, time.Now())
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()

	transfer := f.newTransfer()
	require.NoError(t, f.store.Create(ctx, transfer))

	got, err := f.store.FindByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.Number, got.Number)
	assert.Equal(t, models.StatusPendingRecipientReview, got.Status)
	assert.Equal(t, f.buyer.NationalID, got.BuyerNationalID)
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, models.ActionInitiated, got.Timeline[0].Action)

	active, err := f.store.FindActiveByParcel(ctx, f.parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.ID, active.ID)
}

func TestPostgresStore_OneActivePerParcel(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Create(ctx, f.newTransfer()))

	err := f.store.Create(ctx, f.newTransfer())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrConflict), "expected conflict, got %v", err)
}

func TestPostgresStore_ExecutePersistsMutation(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()

	transfer := f.newTransfer()
	require.NoError(t, f.store.Create(ctx, transfer))

	now := time.Now()
	updated, err := f.store.Execute(ctx, transfer.ID,
		func(t *models.Transfer) error { return t.CanRecipientReview(f.buyer.ID) },
		func(t *models.Transfer) error { return t.ApplyReject(f.buyer.ID, "price disputed", now) },
	)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)

	got, err := f.store.FindByID(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, "price disputed", got.RejectionReason)
	assert.Len(t, got.Timeline, 2)

	// The terminal row no longer blocks new transfers.
	_, err = f.store.FindActiveByParcel(ctx, f.parcel.ID)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	require.NoError(t, f.store.Create(ctx, f.newTransfer()))
}

func TestPostgresStore_ListFilters(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()

	transfer := f.newTransfer()
	require.NoError(t, f.store.Create(ctx, transfer))

	byParty, err := f.store.List(ctx, Filter{Party: f.buyer.ID})
	require.NoError(t, err)
	require.Len(t, byParty, 1)

	byCounty, err := f.store.List(ctx, Filter{County: "Mombasa"})
	require.NoError(t, err)
	assert.Empty(t, byCounty)
}
