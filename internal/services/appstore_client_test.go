package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/braindumpster/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	body []byte
}

// appleStub records every request and answers with the configured JSON.
func appleStub(t *testing.T, response string, calls *[]recordedCall) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		*calls = append(*calls, recordedCall{body: body})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

func newTestClient(productionURL, sandboxURL string, timeout time.Duration) *AppStoreClient {
	cfg := &config.Config{
		AppleSharedSecret:  "test-shared-secret",
		AppleProductionURL: productionURL,
		AppleSandboxURL:    sandboxURL,
		AppleVerifyTimeout: timeout,
	}
	return NewAppStoreClient(cfg, DefaultAppleStatusTable())
}

func TestVerifyProductionSuccess(t *testing.T) {
	var calls []recordedCall
	srv := appleStub(t, `{"status":0,"environment":"Production","receipt":{"bundle_id":"com.braindumpster.app"}}`, &calls)
	defer srv.Close()

	client := newTestClient(srv.URL, "http://sandbox.invalid", 5*time.Second)
	outcome, err := client.Verify(context.Background(), "base64-receipt")
	require.NoError(t, err)
	require.Len(t, calls, 1)

	assert.True(t, outcome.Succeeded)
	assert.Equal(t, 0, outcome.StatusCode)
	assert.Equal(t, EnvironmentProduction, outcome.Environment)
	assert.Equal(t, "com.braindumpster.app", outcome.Payload.Receipt.BundleID)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(calls[0].body, &sent))
	assert.Equal(t, "base64-receipt", sent["receipt-data"])
	assert.Equal(t, "test-shared-secret", sent["password"])
	assert.Equal(t, true, sent["exclude-old-transactions"])
}

func TestVerifySandboxFallback(t *testing.T) {
	var prodCalls, sandboxCalls []recordedCall
	prod := appleStub(t, `{"status":21007}`, &prodCalls)
	defer prod.Close()
	sandbox := appleStub(t, `{"status":0,"receipt":{"bundle_id":"com.braindumpster.app"}}`, &sandboxCalls)
	defer sandbox.Close()

	client := newTestClient(prod.URL, sandbox.URL, 5*time.Second)
	outcome, err := client.Verify(context.Background(), "sandbox-receipt")
	require.NoError(t, err)

	require.Len(t, prodCalls, 1)
	require.Len(t, sandboxCalls, 1)
	assert.Equal(t, prodCalls[0].body, sandboxCalls[0].body)

	// No environment field in the sandbox answer: tagged by the endpoint
	// that produced it.
	assert.Equal(t, EnvironmentSandbox, outcome.Environment)
}

func TestVerifyNoSandboxToProductionBounce(t *testing.T) {
	var prodCalls, sandboxCalls []recordedCall
	prod := appleStub(t, `{"status":21007}`, &prodCalls)
	defer prod.Close()
	sandbox := appleStub(t, `{"status":21007}`, &sandboxCalls)
	defer sandbox.Close()

	client := newTestClient(prod.URL, sandbox.URL, 5*time.Second)
	_, err := client.Verify(context.Background(), "weird-receipt")

	var authErr *AuthorityError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 21007, authErr.Code)
	assert.Len(t, prodCalls, 1)
	assert.Len(t, sandboxCalls, 1)
}

func TestVerifyAuthorityRejection(t *testing.T) {
	var calls []recordedCall
	srv := appleStub(t, `{"status":21003}`, &calls)
	defer srv.Close()

	client := newTestClient(srv.URL, "http://sandbox.invalid", 5*time.Second)
	_, err := client.Verify(context.Background(), "tampered-receipt")

	var authErr *AuthorityError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 21003, authErr.Code)
	assert.Equal(t, "The receipt could not be authenticated", authErr.Message)
}

func TestVerifyUnknownStatusCode(t *testing.T) {
	var calls []recordedCall
	srv := appleStub(t, `{"status":21199}`, &calls)
	defer srv.Close()

	client := newTestClient(srv.URL, "http://sandbox.invalid", 5*time.Second)
	_, err := client.Verify(context.Background(), "receipt")

	var authErr *AuthorityError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Unknown error (status 21199)", authErr.Message)
}

func TestVerifyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"status":0}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "http://sandbox.invalid", 50*time.Millisecond)
	_, err := client.Verify(context.Background(), "slow-receipt")
	assert.ErrorIs(t, err, ErrVerifyTimeout)
}

func TestVerifyTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(srv.URL, "http://sandbox.invalid", 5*time.Second)
	_, err := client.Verify(context.Background(), "receipt")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.NotErrorIs(t, err, ErrVerifyTimeout)
}

func TestVerifyMalformedAppleResponse(t *testing.T) {
	var calls []recordedCall
	srv := appleStub(t, `not json`, &calls)
	defer srv.Close()

	client := newTestClient(srv.URL, "http://sandbox.invalid", 5*time.Second)
	_, err := client.Verify(context.Background(), "receipt")

	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestVerifyEmptyReceiptRejectedLocally(t *testing.T) {
	var calls []recordedCall
	srv := appleStub(t, `{"status":0}`, &calls)
	defer srv.Close()

	client := newTestClient(srv.URL, "http://sandbox.invalid", 5*time.Second)
	_, err := client.Verify(context.Background(), "")

	assert.ErrorIs(t, err, ErrReceiptMissing)
	assert.Empty(t, calls)
}

func TestVerifyMissingSharedSecret(t *testing.T) {
	client := NewAppStoreClient(&config.Config{
		AppleProductionURL: "http://prod.invalid",
		AppleSandboxURL:    "http://sandbox.invalid",
		AppleVerifyTimeout: time.Second,
	}, DefaultAppleStatusTable())

	_, err := client.Verify(context.Background(), "receipt")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrReceiptMissing))
}
