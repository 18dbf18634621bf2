package service

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ardhi/internal/approval"
	"ardhi/internal/identity"
	identitymodels "ardhi/internal/identity/models"
	identitystore "ardhi/internal/identity/store"
	parcelmodels "ardhi/internal/parcel/models"
	parcelservice "ardhi/internal/parcel/service"
	parcelstore "ardhi/internal/parcel/store"
	regionmodels "ardhi/internal/region/models"
	"ardhi/internal/transfer/models"
	"ardhi/internal/transfer/store"
	id "ardhi/pkg/domain"
	dErrors "ardhi/pkg/domain-errors"
	"ardhi/pkg/platform/audit"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingEmitter) Emit(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) names() []audit.EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]audit.EventName, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.Name)
	}
	return names
}

type passRegions struct{}

func (passRegions) ValidateLocation(context.Context, regionmodels.Location) error { return nil }

type fixture struct {
	svc       *Service
	parcelSvc *parcelservice.Service
	transfers *store.InMemory
	emitter   *recordingEmitter

	seller      *identitymodels.User
	buyer       *identitymodels.User
	countyAdmin *identitymodels.User
	nlcAdmin    *identitymodels.User

	parcel *parcelmodels.Parcel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	seller := &identitymodels.User{
		ID: id.UserID(uuid.New()), Name: "Wanjiku Kamau",
		NationalID: "12345678", KraPin: "A001234567B", Role: identitymodels.RoleUser,
	}
	buyer := &identitymodels.User{
		ID: id.UserID(uuid.New()), Name: "Otieno Odhiambo",
		NationalID: "87654321", KraPin: "A009876543C", Role: identitymodels.RoleUser,
	}
	countyAdmin := &identitymodels.User{
		ID: id.UserID(uuid.New()), Name: "County Admin",
		Role: identitymodels.RoleCountyAdmin, County: "Nairobi",
	}
	nlcAdmin := &identitymodels.User{
		ID: id.UserID(uuid.New()), Name: "NLC Admin",
		Role: identitymodels.RoleNlcAdmin,
	}

	ctx := context.Background()
	users := identitystore.NewInMemory()
	for _, u := range []*identitymodels.User{seller, buyer, countyAdmin, nlcAdmin} {
		require.NoError(t, users.Create(ctx, u))
	}
	directory := identity.NewService(users)

	emitter := &recordingEmitter{}
	parcels := parcelstore.NewInMemory()
	parcelSvc := parcelservice.NewService(parcels, passRegions{}, directory,
		parcelservice.WithEmitter(emitter))

	// One approved, transferable parcel owned by the seller.
	parcel, err := parcelSvc.CreateParcel(ctx, countyAdmin, parcelservice.CreateParcelInput{
		TitleNumber: "NAI00000001",
		LRNumber:    "LR/209/1",
		Location: regionmodels.Location{
			County: "Nairobi", SubCounty: "Westlands", Constituency: "Westlands", Ward: "Parklands",
		},
		OwnerID: seller.ID,
	})
	require.NoError(t, err)
	_, err = parcelSvc.ApplyCountyApproval(ctx, parcel.ID, countyAdmin, approval.Decision{Approved: true})
	require.NoError(t, err)
	parcel, err = parcelSvc.ApplyNlcApproval(ctx, parcel.ID, nlcAdmin, approval.Decision{Approved: true})
	require.NoError(t, err)
	require.True(t, parcel.IsTransferable())

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	transfers := store.NewInMemory()
	svc := NewService(transfers, parcelSvc, directory, NewShardedTx(), node,
		WithEmitter(emitter))

	return &fixture{
		svc: svc, parcelSvc: parcelSvc, transfers: transfers, emitter: emitter,
		seller: seller, buyer: buyer, countyAdmin: countyAdmin, nlcAdmin: nlcAdmin,
		parcel: parcel,
	}
}

func (f *fixture) initiate(t *testing.T, ctx context.Context) *models.Transfer {
	t.Helper()
	transfer, err := f.svc.Initiate(ctx, f.seller, InitiateInput{
		ParcelID:        f.parcel.ID,
		BuyerNationalID: f.buyer.NationalID,
		BuyerKraPin:     f.buyer.KraPin,
		BuyerName:       f.buyer.Name,
		AgreedPrice:     2_500_000,
	})
	require.NoError(t, err)
	return transfer
}

func (f *fixture) parcelNow(t *testing.T, ctx context.Context) *parcelmodels.Parcel {
	t.Helper()
	parcel, err := f.parcelSvc.GetParcel(ctx, f.parcel.ID)
	require.NoError(t, err)
	return parcel
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates transfer and locks the parcel", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)

		assert.Equal(t, models.StatusPendingRecipientReview, transfer.Status)
		assert.Equal(t, f.seller.ID, transfer.Seller)
		assert.Equal(t, f.buyer.ID, transfer.Buyer)
		assert.Equal(t, "Otieno Odhiambo", transfer.BuyerName)
		assert.Contains(t, transfer.Number, "TRF-")
		require.Len(t, transfer.Timeline, 1)
		assert.Equal(t, models.ActionInitiated, transfer.Timeline[0].Action)

		parcel := f.parcelNow(t, ctx)
		assert.Equal(t, parcelmodels.StatusPendingTransfer, parcel.Status)
		assert.Contains(t, f.emitter.names(), audit.EventTransferInitiated)
	})

	t.Run("non-owner cannot initiate", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Initiate(ctx, f.buyer, InitiateInput{
			ParcelID:        f.parcel.ID,
			BuyerNationalID: f.seller.NationalID,
			BuyerKraPin:     f.seller.KraPin,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeAuthorization))
	})

	t.Run("unregistered buyer fails validation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Initiate(ctx, f.seller, InitiateInput{
			ParcelID:        f.parcel.ID,
			BuyerNationalID: "00000000",
			BuyerKraPin:     "A000000000Z",
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, parcelmodels.StatusActive, f.parcelNow(t, ctx).Status)
	})

	t.Run("mismatched KRA PIN fails validation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Initiate(ctx, f.seller, InitiateInput{
			ParcelID:        f.parcel.ID,
			BuyerNationalID: f.buyer.NationalID,
			BuyerKraPin:     "WRONG",
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("buyer must differ from seller", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Initiate(ctx, f.seller, InitiateInput{
			ParcelID:        f.parcel.ID,
			BuyerNationalID: f.seller.NationalID,
			BuyerKraPin:     f.seller.KraPin,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unapproved parcel is not transferable", func(t *testing.T) {
		f := newFixture(t)
		pending, err := f.parcelSvc.CreateParcel(ctx, f.countyAdmin, parcelservice.CreateParcelInput{
			TitleNumber: "NAI00000002",
			LRNumber:    "LR/209/2",
			Location: regionmodels.Location{
				County: "Nairobi", SubCounty: "Westlands", Constituency: "Westlands", Ward: "Parklands",
			},
			OwnerID: f.seller.ID,
		})
		require.NoError(t, err)
		_, err = f.svc.Initiate(ctx, f.seller, InitiateInput{
			ParcelID:        pending.ID,
			BuyerNationalID: f.buyer.NationalID,
			BuyerKraPin:     f.buyer.KraPin,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("second initiation on a locked parcel loses", func(t *testing.T) {
		f := newFixture(t)
		f.initiate(t, ctx)
		_, err := f.svc.Initiate(ctx, f.seller, InitiateInput{
			ParcelID:        f.parcel.ID,
			BuyerNationalID: f.buyer.NationalID,
			BuyerKraPin:     f.buyer.KraPin,
		})
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestInitiateConcurrency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	input := InitiateInput{
		ParcelID:        f.parcel.ID,
		BuyerNationalID: f.buyer.NationalID,
		BuyerKraPin:     f.buyer.KraPin,
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Initiate(ctx, f.seller, input)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, lost int
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState), "unexpected error: %v", err)
			lost++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, lost)

	active, err := f.transfers.List(ctx, store.Filter{ParcelID: f.parcel.ID})
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, parcelmodels.StatusPendingTransfer, f.parcelNow(t, ctx).Status)
}

// Scenario: initiate, accept, county verify, NLC approve; ownership flips and
// the parcel unlocks with one new history entry.
func TestEndToEndCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	transfer := f.initiate(t, ctx)

	transfer, err := f.svc.Accept(ctx, f.buyer, transfer.ID, "terms agreed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCountyVerification, transfer.Status)

	transfer, err = f.svc.CountyVerify(ctx, f.countyAdmin, transfer.ID, approval.Decision{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNlcReview, transfer.Status)
	require.NotNil(t, transfer.CountyVerification)
	assert.Equal(t, f.countyAdmin.ID, transfer.CountyVerification.DecidedBy)

	transfer, err = f.svc.NlcApprove(ctx, f.nlcAdmin, transfer.ID, approval.Decision{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, transfer.Status)
	require.NotNil(t, transfer.CompletedAt)

	parcel := f.parcelNow(t, ctx)
	assert.Equal(t, f.buyer.ID, parcel.Owner)
	assert.Equal(t, "Otieno Odhiambo", parcel.OwnerName)
	assert.Equal(t, parcelmodels.StatusActive, parcel.Status)
	require.Len(t, parcel.TransferHistory, 1)
	assert.Equal(t, f.seller.ID, parcel.TransferHistory[0].From)
	assert.Equal(t, f.buyer.ID, parcel.TransferHistory[0].To)

	assert.Contains(t, f.emitter.names(), audit.EventTransferCompleted)

	// Completed transfers are frozen.
	_, err = f.svc.Cancel(ctx, f.seller, transfer.ID, "too late")
	require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

// Scenario: acceptance by a user who is not the named buyer fails and the
// transfer stays in recipient review.
func TestAcceptByImposter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	transfer := f.initiate(t, ctx)

	imposter := &identitymodels.User{ID: id.UserID(uuid.New()), Role: identitymodels.RoleUser}
	_, err := f.svc.Accept(ctx, imposter, transfer.ID, "")
	require.True(t, dErrors.HasCode(err, dErrors.CodeAuthorization))

	current, err := f.svc.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingRecipientReview, current.Status)
}

// Scenario: county-admin force stop with fraud flagging.
func TestStopWithFraudFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	transfer := f.initiate(t, ctx)
	transfer, err := f.svc.Accept(ctx, f.buyer, transfer.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusCountyVerification, transfer.Status)

	transfer, err = f.svc.Stop(ctx, f.countyAdmin, transfer.ID, StopInput{
		Reason: "suspected forgery", IsFraudulent: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, transfer.Status)

	parcel := f.parcelNow(t, ctx)
	assert.Equal(t, parcelmodels.StatusActive, parcel.Status)
	assert.True(t, parcel.IsFraudulent)
	assert.Equal(t, "suspected forgery", parcel.FraudReason)
	assert.Contains(t, f.emitter.names(), audit.EventTransferStopped)
	assert.Contains(t, f.emitter.names(), audit.EventParcelFraudFlagged)
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	t.Run("buyer rejection releases the parcel", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)

		transfer, err := f.svc.Reject(ctx, f.buyer, transfer.ID, "price disputed")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, transfer.Status)
		assert.Equal(t, "price disputed", transfer.RejectionReason)
		assert.Equal(t, parcelmodels.StatusActive, f.parcelNow(t, ctx).Status)
	})

	t.Run("second rejection fails without altering the first", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)
		_, err := f.svc.Reject(ctx, f.buyer, transfer.ID, "price disputed")
		require.NoError(t, err)

		_, err = f.svc.Reject(ctx, f.buyer, transfer.ID, "again")
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

		current, err := f.svc.GetTransfer(ctx, transfer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, current.Status)
		assert.Equal(t, "price disputed", current.RejectionReason)
	})

	t.Run("parcel becomes transferable again after rejection", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)
		_, err := f.svc.Reject(ctx, f.buyer, transfer.ID, "no")
		require.NoError(t, err)

		second := f.initiate(t, ctx)
		assert.NotEqual(t, transfer.ID, second.ID)
	})
}

func TestCountyVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("rejection is terminal and releases the parcel", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)
		_, err := f.svc.Accept(ctx, f.buyer, transfer.ID, "")
		require.NoError(t, err)

		transfer, err = f.svc.CountyVerify(ctx, f.countyAdmin, transfer.ID,
			approval.Decision{Approved: false, Remarks: "boundary mismatch"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCountyRejected, transfer.Status)
		assert.Equal(t, "boundary mismatch", transfer.RejectionReason)
		assert.Equal(t, parcelmodels.StatusActive, f.parcelNow(t, ctx).Status)

		_, err = f.svc.CountyVerify(ctx, f.countyAdmin, transfer.ID, approval.Decision{Approved: true})
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("admin from another county is refused", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)
		_, err := f.svc.Accept(ctx, f.buyer, transfer.ID, "")
		require.NoError(t, err)

		mombasaAdmin := &identitymodels.User{
			ID: id.UserID(uuid.New()), Role: identitymodels.RoleCountyAdmin, County: "Mombasa",
		}
		_, err = f.svc.CountyVerify(ctx, mombasaAdmin, transfer.ID, approval.Decision{Approved: true})
		require.True(t, dErrors.HasCode(err, dErrors.CodeAuthorization))
	})

	t.Run("cannot verify before acceptance", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)
		_, err := f.svc.CountyVerify(ctx, f.countyAdmin, transfer.ID, approval.Decision{Approved: true})
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestNlcApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("rejection releases the parcel without flipping ownership", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)
		_, err := f.svc.Accept(ctx, f.buyer, transfer.ID, "")
		require.NoError(t, err)
		_, err = f.svc.CountyVerify(ctx, f.countyAdmin, transfer.ID, approval.Decision{Approved: true})
		require.NoError(t, err)

		transfer, err = f.svc.NlcApprove(ctx, f.nlcAdmin, transfer.ID,
			approval.Decision{Approved: false, Remarks: "valuation dispute"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, transfer.Status)

		parcel := f.parcelNow(t, ctx)
		assert.Equal(t, f.seller.ID, parcel.Owner)
		assert.Equal(t, parcelmodels.StatusActive, parcel.Status)
		assert.Empty(t, parcel.TransferHistory)
	})

	t.Run("county admin cannot give the final approval", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)
		_, err := f.svc.Accept(ctx, f.buyer, transfer.ID, "")
		require.NoError(t, err)
		_, err = f.svc.CountyVerify(ctx, f.countyAdmin, transfer.ID, approval.Decision{Approved: true})
		require.NoError(t, err)

		_, err = f.svc.NlcApprove(ctx, f.countyAdmin, transfer.ID, approval.Decision{Approved: true})
		require.True(t, dErrors.HasCode(err, dErrors.CodeAuthorization))
	})
}

// failingRegistry wraps the parcel registry and fails the ownership flip,
// simulating a storage fault between the two completion writes.
type failingRegistry struct {
	ParcelRegistry
}

func (f *failingRegistry) TransferOwnership(context.Context, id.ParcelID, id.UserID, id.UserID, string) (*parcelmodels.Parcel, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "storage fault")
}

func TestCompletionAtomicity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	transfer := f.initiate(t, ctx)
	_, err := f.svc.Accept(ctx, f.buyer, transfer.ID, "")
	require.NoError(t, err)
	_, err = f.svc.CountyVerify(ctx, f.countyAdmin, transfer.ID, approval.Decision{Approved: true})
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	broken := NewService(f.transfers, &failingRegistry{ParcelRegistry: f.parcelSvc},
		identity.NewService(identitystore.NewInMemory()), NewShardedTx(), node)

	_, err = broken.NlcApprove(ctx, f.nlcAdmin, transfer.ID, approval.Decision{Approved: true})
	require.Error(t, err)

	// Neither write landed: the transfer is still awaiting NLC review and the
	// parcel is untouched.
	current, err := f.svc.GetTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNlcReview, current.Status)

	parcel := f.parcelNow(t, ctx)
	assert.Equal(t, f.seller.ID, parcel.Owner)
	assert.Equal(t, parcelmodels.StatusPendingTransfer, parcel.Status)

	// The intact service can still complete the transfer.
	completed, err := f.svc.NlcApprove(ctx, f.nlcAdmin, transfer.ID, approval.Decision{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, f.buyer.ID, f.parcelNow(t, ctx).Owner)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("seller cancels a pending transfer", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)

		transfer, err := f.svc.Cancel(ctx, f.seller, transfer.ID, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, transfer.Status)
		assert.Equal(t, parcelmodels.StatusActive, f.parcelNow(t, ctx).Status)
		assert.Contains(t, f.emitter.names(), audit.EventTransferCancelled)
	})

	t.Run("buyer cannot cancel", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)
		_, err := f.svc.Cancel(ctx, f.buyer, transfer.ID, "no")
		require.True(t, dErrors.HasCode(err, dErrors.CodeAuthorization))
	})

	t.Run("county admin with jurisdiction can cancel", func(t *testing.T) {
		f := newFixture(t)
		transfer := f.initiate(t, ctx)
		_, err := f.svc.Cancel(ctx, f.countyAdmin, transfer.ID, "administrative review")
		require.NoError(t, err)
	})
}

func TestStopAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	transfer := f.initiate(t, ctx)

	mombasaAdmin := &identitymodels.User{
		ID: id.UserID(uuid.New()), Role: identitymodels.RoleCountyAdmin, County: "Mombasa",
	}
	_, err := f.svc.Stop(ctx, mombasaAdmin, transfer.ID, StopInput{Reason: "nope"})
	require.True(t, dErrors.HasCode(err, dErrors.CodeAuthorization))

	_, err = f.svc.Stop(ctx, f.seller, transfer.ID, StopInput{Reason: "not an admin"})
	require.True(t, dErrors.HasCode(err, dErrors.CodeAuthorization))
}

func TestGetTransferNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetTransfer(context.Background(), id.TransferID(uuid.New()))
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
