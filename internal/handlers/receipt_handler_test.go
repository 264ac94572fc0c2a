package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/braindumpster/backend/internal/catalog"
	"github.com/braindumpster/backend/internal/dto"
	"github.com/braindumpster/backend/internal/middleware"
	"github.com/braindumpster/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBundleID = "com.braindumpster.app"

var verifyTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeAppleVerifier struct {
	outcome *services.VerificationOutcome
	err     error
}

func (f *fakeAppleVerifier) Verify(ctx context.Context, receiptData string) (*services.VerificationOutcome, error) {
	return f.outcome, f.err
}

type noopStore struct{}

func (noopStore) SaveEntitlement(userID string, ent *services.Entitlement, fingerprint string, latestInfo []services.ApplePurchase) error {
	return nil
}

type allowAllVerifier struct{}

func (allowAllVerifier) Authenticate(header string) (*middleware.Identity, error) {
	return &middleware.Identity{UserID: "user-42", Email: "user@example.com"}, nil
}

func newVerifyApp(verifier *fakeAppleVerifier) *fiber.App {
	resolver := services.NewResolverAt(catalog.Default(), func() time.Time { return verifyTime })
	receiptService := services.NewReceiptService(verifier, resolver, noopStore{}, testBundleID)
	h := NewReceiptHandler(receiptService, nil)

	app := fiber.New()
	app.Post("/api/verify-receipt", middleware.Protected(allowAllVerifier{}), h.VerifyReceipt)
	return app
}

func postVerify(t *testing.T, app *fiber.App, body any) (*http.Response, dto.VerifyReceiptResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/verify-receipt", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")

	resp, err := app.Test(req, 2000)
	require.NoError(t, err)

	var decoded dto.VerifyReceiptResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func activeOutcome(productID string) *services.VerificationOutcome {
	return &services.VerificationOutcome{
		Succeeded:   true,
		Environment: services.EnvironmentProduction,
		Payload: &services.AppleResponse{
			Environment: services.EnvironmentProduction,
			Receipt: services.AppleReceipt{
				BundleID: testBundleID,
				InApp: []services.ApplePurchase{{
					ProductID:     productID,
					TransactionID: "tx-1",
					ExpiresDateMS: "1792000000000",
				}},
			},
		},
	}
}

func TestVerifyReceiptEndpointPremium(t *testing.T) {
	app := newVerifyApp(&fakeAppleVerifier{outcome: activeOutcome("brain_dumpster_yearly_premium")})

	resp, body := postVerify(t, app, dto.VerifyReceiptRequest{ReceiptData: "receipt"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	assert.True(t, body.IsPremium)
	assert.Equal(t, "brain_dumpster_yearly_premium", body.ProductID)
}

func TestVerifyReceiptEndpointMissingReceipt(t *testing.T) {
	app := newVerifyApp(&fakeAppleVerifier{})

	resp, body := postVerify(t, app, dto.VerifyReceiptRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, "Missing receipt data", body.Message)
}

func TestVerifyReceiptEndpointBundleMismatch(t *testing.T) {
	outcome := activeOutcome("brain_dumpster_yearly_premium")
	outcome.Payload.Receipt.BundleID = "com.other.app"
	app := newVerifyApp(&fakeAppleVerifier{outcome: outcome})

	resp, body := postVerify(t, app, dto.VerifyReceiptRequest{ReceiptData: "receipt"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid bundle ID", body.Message)
}

func TestVerifyReceiptEndpointAppleRejection(t *testing.T) {
	app := newVerifyApp(&fakeAppleVerifier{err: &services.AuthorityError{
		Code: 21003, Message: "The receipt could not be authenticated",
	}})

	resp, body := postVerify(t, app, dto.VerifyReceiptRequest{ReceiptData: "receipt"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "The receipt could not be authenticated", body.Message)
}

func TestVerifyReceiptEndpointTimeout(t *testing.T) {
	app := newVerifyApp(&fakeAppleVerifier{err: services.ErrVerifyTimeout})

	resp, body := postVerify(t, app, dto.VerifyReceiptRequest{ReceiptData: "receipt"})
	assert.Equal(t, fiber.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, "Request timed out", body.Message)
}

func TestVerifyReceiptEndpointTransportFailure(t *testing.T) {
	app := newVerifyApp(&fakeAppleVerifier{err: &services.TransportError{
		Err: context.Canceled,
	}})

	resp, body := postVerify(t, app, dto.VerifyReceiptRequest{ReceiptData: "receipt"})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", body.Message)
}

func TestVerifyReceiptEndpointMalformedBody(t *testing.T) {
	app := newVerifyApp(&fakeAppleVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/verify-receipt", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")

	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVerifyReceiptEndpointRequiresAuth(t *testing.T) {
	app := newVerifyApp(&fakeAppleVerifier{outcome: activeOutcome("brain_dumpster_yearly_premium")})

	payload, _ := json.Marshal(dto.VerifyReceiptRequest{ReceiptData: "receipt"})
	req := httptest.NewRequest(http.MethodPost, "/api/verify-receipt", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyReceiptEndpointUserIDComesFromIdentity(t *testing.T) {
	store := &capturingStore{}
	resolver := services.NewResolverAt(catalog.Default(), func() time.Time { return verifyTime })
	receiptService := services.NewReceiptService(
		&fakeAppleVerifier{outcome: activeOutcome("brain_dumpster_monthly_premium")},
		resolver, store, testBundleID)
	h := NewReceiptHandler(receiptService, nil)

	app := fiber.New()
	app.Post("/api/verify-receipt", middleware.Protected(allowAllVerifier{}), h.VerifyReceipt)

	resp, _ := postVerify(t, app, dto.VerifyReceiptRequest{
		ReceiptData: "receipt",
		UserID:      "someone-else",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, store.userIDs, 1)
	assert.Equal(t, "user-42", store.userIDs[0])
}

type capturingStore struct {
	userIDs []string
}

func (s *capturingStore) SaveEntitlement(userID string, ent *services.Entitlement, fingerprint string, latestInfo []services.ApplePurchase) error {
	s.userIDs = append(s.userIDs, userID)
	return nil
}
