package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/braindumpster/backend/internal/dto"
)

// ReceiptVerifier is the upstream verification dependency of
// ReceiptService. Satisfied by AppStoreClient.
type ReceiptVerifier interface {
	Verify(ctx context.Context, receiptData string) (*VerificationOutcome, error)
}

// EntitlementStore is the persistence collaborator. Invoked at most once
// per premium-positive resolution; failures never fail the verification.
type EntitlementStore interface {
	SaveEntitlement(userID string, ent *Entitlement, fingerprint string, latestInfo []ApplePurchase) error
}

// ReceiptService runs the full verification flow: Verifier, then
// Resolver, then the persistence collaborator. Holds no per-request
// state; safe for concurrent use.
type ReceiptService struct {
	verifier         ReceiptVerifier
	resolver         *Resolver
	store            EntitlementStore
	expectedBundleID string
}

func NewReceiptService(verifier ReceiptVerifier, resolver *Resolver, store EntitlementStore, expectedBundleID string) *ReceiptService {
	return &ReceiptService{
		verifier:         verifier,
		resolver:         resolver,
		store:            store,
		expectedBundleID: expectedBundleID,
	}
}

// VerifyReceipt validates the request, verifies the receipt with Apple,
// resolves the entitlement and persists it for the user when premium.
func (s *ReceiptService) VerifyReceipt(ctx context.Context, req *dto.VerifyReceiptRequest) (*dto.VerifyReceiptResponse, error) {
	if req.ReceiptData == "" {
		return nil, ErrReceiptMissing
	}

	// Never log receipt content, only the fingerprint.
	fingerprint := ReceiptFingerprint(req.ReceiptData)
	attrs := []any{"receipt_hash", fingerprint, "app_version", req.AppVersion}
	if req.UserID != "" {
		attrs = append(attrs, "user_id", req.UserID)
	}
	if req.DeviceInfo != nil {
		attrs = append(attrs, "device", req.DeviceInfo.Model, "os", req.DeviceInfo.OSVersion)
	}
	slog.Info("receipt verification requested", attrs...)

	// Client-reported bundle ID is checked before any outbound call; the
	// authoritative check against the receipt happens in the resolver.
	if req.BundleID != "" && req.BundleID != s.expectedBundleID {
		slog.Warn("request bundle ID mismatch", "receipt_hash", fingerprint)
		return nil, ErrBundleMismatch
	}

	outcome, err := s.verifier.Verify(ctx, req.ReceiptData)
	if err != nil {
		return nil, err
	}

	ent, err := s.resolver.Resolve(outcome, s.expectedBundleID)
	if err != nil {
		return nil, err
	}

	if ent.IsPremium && req.UserID != "" {
		// Fire-and-forget: a storage fault must not fail the verification.
		if err := s.store.SaveEntitlement(req.UserID, ent, fingerprint, outcome.Payload.LatestReceiptInfo); err != nil {
			slog.Error("failed to persist entitlement", "error", err, "user_id", req.UserID)
		}
	}

	return buildResponse(ent, outcome), nil
}

func buildResponse(ent *Entitlement, outcome *VerificationOutcome) *dto.VerifyReceiptResponse {
	if ent.IsPremium {
		return &dto.VerifyReceiptResponse{
			Success:        true,
			IsPremium:      true,
			ProductID:      ent.ProductID,
			ExpirationDate: ent.ExpiresAt,
			Environment:    ent.Environment,
			Message:        "Receipt verified successfully",
		}
	}

	message := "No active subscriptions"
	if len(outcome.Payload.Receipt.InApp)+len(outcome.Payload.LatestReceiptInfo) == 0 {
		message = "No purchases found"
	}
	return &dto.VerifyReceiptResponse{
		Success:   true,
		IsPremium: false,
		Message:   message,
	}
}

// ReceiptFingerprint returns the first 8 hex characters of the
// receipt's sha256 digest, the only receipt-derived value ever logged.
func ReceiptFingerprint(receiptData string) string {
	sum := sha256.Sum256([]byte(receiptData))
	return hex.EncodeToString(sum[:])[:8]
}
