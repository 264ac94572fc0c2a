package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/braindumpster/backend/internal/config"
)

// appleStatusSandboxReceipt is returned by the production endpoint when
// it receives a receipt generated in the test environment.
const appleStatusSandboxReceipt = 21007

// DefaultAppleStatusTable maps Apple verifyReceipt status codes to the
// messages surfaced to clients.
func DefaultAppleStatusTable() map[int]string {
	return map[int]string{
		0:     "Success",
		21000: "The App Store could not read the JSON object you provided",
		21002: "The data in the receipt-data property was malformed or missing",
		21003: "The receipt could not be authenticated",
		21004: "The shared secret you provided does not match",
		21005: "The receipt server is not currently available",
		21006: "This receipt is valid but the subscription has expired",
		21007: "This receipt is from the test environment",
		21008: "This receipt is from the production environment",
		21009: "Internal data access error. Try again later",
		21010: "The user account cannot be found or has been deleted",
	}
}

// AppStoreClient verifies opaque App Store receipts against Apple's
// verifyReceipt endpoints, handling the production-to-sandbox redirect
// protocol. Safe for concurrent use; each call is independent.
type AppStoreClient struct {
	httpClient    *http.Client
	productionURL string
	sandboxURL    string
	sharedSecret  string
	statusTable   map[int]string
}

func NewAppStoreClient(cfg *config.Config, statusTable map[int]string) *AppStoreClient {
	table := make(map[int]string, len(statusTable))
	for code, msg := range statusTable {
		table[code] = msg
	}
	return &AppStoreClient{
		httpClient:    &http.Client{Timeout: cfg.AppleVerifyTimeout},
		productionURL: cfg.AppleProductionURL,
		sandboxURL:    cfg.AppleSandboxURL,
		sharedSecret:  cfg.AppleSharedSecret,
		statusTable:   table,
	}
}

// Verify sends the receipt to Apple production and, when Apple reports a
// sandbox receipt (status 21007), retries once against the sandbox
// endpoint with the identical payload. No sandbox-to-production bounce.
func (c *AppStoreClient) Verify(ctx context.Context, receiptData string) (*VerificationOutcome, error) {
	if receiptData == "" {
		return nil, ErrReceiptMissing
	}
	if c.sharedSecret == "" {
		return nil, errors.New("apple shared secret is not configured")
	}

	payload := verifyReceiptRequest{
		ReceiptData:            receiptData,
		Password:               c.sharedSecret,
		ExcludeOldTransactions: true,
	}

	slog.Info("verifying receipt with apple", "environment", EnvironmentProduction)
	resp, err := c.post(ctx, c.productionURL, payload)
	if err != nil {
		return nil, err
	}
	environment := EnvironmentProduction

	if resp.Status == appleStatusSandboxReceipt {
		slog.Info("sandbox receipt detected, retrying against sandbox")
		resp, err = c.post(ctx, c.sandboxURL, payload)
		if err != nil {
			return nil, err
		}
		environment = EnvironmentSandbox
	}

	if resp.Status != 0 {
		message := c.StatusMessage(resp.Status)
		slog.Warn("apple verification rejected", "status", resp.Status, "message", message)
		return nil, &AuthorityError{Code: resp.Status, Message: message}
	}

	// Apple's own environment field wins when present; the endpoint that
	// answered decides otherwise.
	if resp.Environment != "" {
		environment = resp.Environment
	}

	slog.Info("apple verification successful", "environment", environment)
	return &VerificationOutcome{
		Succeeded:   true,
		StatusCode:  resp.Status,
		Environment: environment,
		Payload:     resp,
	}, nil
}

// StatusMessage translates an Apple status code into its catalog
// message; unknown codes get a generic message carrying the raw code.
func (c *AppStoreClient) StatusMessage(code int) string {
	if msg, ok := c.statusTable[code]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown error (status %d)", code)
}

func (c *AppStoreClient) post(ctx context.Context, url string, payload verifyReceiptRequest) (*AppleResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrVerifyTimeout
		}
		return nil, &TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	var resp AppleResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to decode apple response: %w", err)}
	}
	return &resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
