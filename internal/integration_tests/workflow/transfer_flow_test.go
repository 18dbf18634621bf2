package workflow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ardhi/internal/identity"
	identitymodels "ardhi/internal/identity/models"
	identitystore "ardhi/internal/identity/store"
	jwttoken "ardhi/internal/jwt_token"
	parcelhandler "ardhi/internal/parcel/handler"
	parcelmodels "ardhi/internal/parcel/models"
	parcelservice "ardhi/internal/parcel/service"
	parcelstore "ardhi/internal/parcel/store"
	"ardhi/internal/platform/metrics"
	"ardhi/internal/region"
	regionmodels "ardhi/internal/region/models"
	regionstore "ardhi/internal/region/store"
	transferhandler "ardhi/internal/transfer/handler"
	transfermodels "ardhi/internal/transfer/models"
	transferservice "ardhi/internal/transfer/service"
	transferstore "ardhi/internal/transfer/store"
	id "ardhi/pkg/domain"
	"ardhi/pkg/testutil"
)

// env wires the full stack on memory stores behind real JWT auth, the way
// cmd/server does without Postgres.
type env struct {
	router *chi.Mux
	jwt    *jwttoken.JWTService

	seller      *identitymodels.User
	buyer       *identitymodels.User
	countyAdmin *identitymodels.User
	nlcAdmin    *identitymodels.User
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

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

	users := identitystore.NewInMemory()
	for _, u := range []*identitymodels.User{seller, buyer, countyAdmin, nlcAdmin} {
		require.NoError(t, users.Create(context.Background(), u))
	}

	identitySvc := identity.NewService(users)
	regionSvc := region.NewService(regionstore.NewInMemory(regionstore.DevCounties()...))
	parcelSvc := parcelservice.NewService(parcelstore.NewInMemory(), regionSvc, identitySvc,
		parcelservice.WithLogger(log))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	transferSvc := transferservice.NewService(transferstore.NewInMemory(), parcelSvc, identitySvc,
		transferservice.NewShardedTx(), node, transferservice.WithLogger(log))

	jwtService := jwttoken.NewJWTService("integration-test-key", "ardhi", "ardhi-api")
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	router := chi.NewRouter()
	parcelhandler.New(parcelSvc, identitySvc, log, &metrics.Metrics{}, validator).Register(router)
	transferhandler.New(transferSvc, identitySvc, log, &metrics.Metrics{}, validator).Register(router)

	return &env{
		router: router, jwt: jwtService,
		seller: seller, buyer: buyer, countyAdmin: countyAdmin, nlcAdmin: nlcAdmin,
	}
}

// do issues an authenticated JSON request and decodes the response into out.
func (e *env) do(t *testing.T, as *identitymodels.User, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	req := testutil.NewJSONRequest(t, method, path, body)
	token, err := e.jwt.GenerateAccessToken(uuid.UUID(as.ID), time.Minute)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := testutil.DoRequest(e.router, req)
	if out != nil && rr.Code < 300 {
		require.NoError(t, json.Unmarshal(testutil.ReadBody(t, rr), out))
	}
	return rr
}

func (e *env) registerParcel(t *testing.T) *parcelmodels.Parcel {
	t.Helper()

	var parcel parcelmodels.Parcel
	rr := e.do(t, e.countyAdmin, http.MethodPost, "/parcels", parcelhandler.CreateParcelRequest{
		TitleNumber: "NAI" + uuid.NewString()[:8],
		LRNumber:    "LR/209/" + uuid.NewString()[:8],
		Location: regionmodels.Location{
			County: "Nairobi", SubCounty: "Westlands", Constituency: "Westlands", Ward: "Parklands",
		},
		OwnerID: e.seller.ID.String(),
	}, &parcel)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	approve := parcelhandler.ApprovalRequest{Approved: true}
	rr = e.do(t, e.countyAdmin, http.MethodPost, "/parcels/"+parcel.ID.String()+"/county-approval", approve, &parcel)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = e.do(t, e.nlcAdmin, http.MethodPost, "/parcels/"+parcel.ID.String()+"/nlc-approval", approve, &parcel)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	return &parcel
}

func TestTransferFlow_EndToEnd(t *testing.T) {
	e := newEnv(t)
	parcel := e.registerParcel(t)

	var transfer transfermodels.Transfer
	rr := e.do(t, e.seller, http.MethodPost, "/transfers", transferhandler.InitiateTransferRequest{
		ParcelID:        parcel.ID.String(),
		BuyerNationalID: e.buyer.NationalID,
		BuyerKraPin:     e.buyer.KraPin,
		BuyerName:       e.buyer.Name,
		AgreedPrice:     2_500_000,
	}, &transfer)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, transfermodels.StatusPendingRecipientReview, transfer.Status)

	base := "/transfers/" + transfer.ID.String()

	rr = e.do(t, e.buyer, http.MethodPost, base+"/accept", transferhandler.AcceptRequest{Remarks: "terms agreed"}, &transfer)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, transfermodels.StatusCountyVerification, transfer.Status)

	rr = e.do(t, e.countyAdmin, http.MethodPost, base+"/county-verification", transferhandler.VerificationRequest{Approved: true}, &transfer)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, transfermodels.StatusNlcReview, transfer.Status)

	rr = e.do(t, e.nlcAdmin, http.MethodPost, base+"/nlc-approval", transferhandler.VerificationRequest{Approved: true}, &transfer)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, transfermodels.StatusCompleted, transfer.Status)

	var owned parcelmodels.Parcel
	rr = e.do(t, e.buyer, http.MethodGet, "/parcels/"+parcel.ID.String(), nil, &owned)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, e.buyer.ID, owned.Owner)
	assert.Equal(t, parcelmodels.StatusActive, owned.Status)
	require.Len(t, owned.TransferHistory, 1)
}

func TestTransferFlow_RequiresAuth(t *testing.T) {
	e := newEnv(t)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/parcels", nil)
	rr := testutil.DoRequest(e.router, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = testutil.NewJSONRequest(t, http.MethodGet, "/parcels", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr = testutil.DoRequest(e.router, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTransferFlow_BuyerCannotVerify(t *testing.T) {
	e := newEnv(t)
	parcel := e.registerParcel(t)

	var transfer transfermodels.Transfer
	rr := e.do(t, e.seller, http.MethodPost, "/transfers", transferhandler.InitiateTransferRequest{
		ParcelID:        parcel.ID.String(),
		BuyerNationalID: e.buyer.NationalID,
		BuyerKraPin:     e.buyer.KraPin,
	}, &transfer)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	base := "/transfers/" + transfer.ID.String()
	rr = e.do(t, e.buyer, http.MethodPost, base+"/accept", transferhandler.AcceptRequest{}, &transfer)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = e.do(t, e.buyer, http.MethodPost, base+"/county-verification", transferhandler.VerificationRequest{Approved: true}, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestTransferFlow_AdministrativeStop(t *testing.T) {
	e := newEnv(t)
	parcel := e.registerParcel(t)

	var transfer transfermodels.Transfer

	testutil.Given(t, "an accepted transfer", func(t *testing.T) {
		rr := e.do(t, e.seller, http.MethodPost, "/transfers", transferhandler.InitiateTransferRequest{
			ParcelID:        parcel.ID.String(),
			BuyerNationalID: e.buyer.NationalID,
			BuyerKraPin:     e.buyer.KraPin,
		}, &transfer)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		rr = e.do(t, e.buyer, http.MethodPost, "/transfers/"+transfer.ID.String()+"/accept", transferhandler.AcceptRequest{}, &transfer)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	testutil.When(t, "the county admin stops it as fraudulent", func(t *testing.T) {
		rr := e.do(t, e.countyAdmin, http.MethodPost, "/transfers/"+transfer.ID.String()+"/stop", transferhandler.StopRequest{
			Reason: "suspected forgery", IsFraudulent: true,
		}, &transfer)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	testutil.Then(t, "the transfer is cancelled and the parcel flagged", func(t *testing.T) {
		assert.Equal(t, transfermodels.StatusCancelled, transfer.Status)

		var flagged parcelmodels.Parcel
		rr := e.do(t, e.countyAdmin, http.MethodGet, "/parcels/"+parcel.ID.String(), nil, &flagged)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, flagged.IsFraudulent)
		assert.Equal(t, parcelmodels.StatusActive, flagged.Status)
	})
}
