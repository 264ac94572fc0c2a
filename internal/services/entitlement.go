package services

import (
	"log/slog"
	"strings"
	"time"

	"github.com/braindumpster/backend/internal/catalog"
)

// Entitlement is the resolved premium-access decision for one
// verification. IsPremium is true iff ProductID is set; ExpiresAt is nil
// for the lifetime product.
type Entitlement struct {
	IsPremium   bool
	ProductID   string
	ExpiresAt   *time.Time
	Environment string
}

// Resolver turns a successful verification outcome into an Entitlement.
// Pure given its inputs and clock; safe to call from any goroutine.
type Resolver struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewResolver(cat *catalog.Catalog) *Resolver {
	return &Resolver{catalog: cat, now: time.Now}
}

// NewResolverAt pins the resolution clock. Used in tests.
func NewResolverAt(cat *catalog.Catalog, now func() time.Time) *Resolver {
	return &Resolver{catalog: cat, now: now}
}

// Resolve checks the receipt's bundle identifier, merges the two
// purchase lists Apple returns (in_app history first, then
// latest_receipt_info), and selects the governing entitlement.
//
// Selection is order-sensitive on purpose: the lifetime product wins
// immediately wherever it appears; otherwise the FIRST entry in merged
// order whose expiry is strictly in the future is selected, not the one
// expiring furthest out. Callers rely on this documented precedence.
func (r *Resolver) Resolve(outcome *VerificationOutcome, expectedBundleID string) (*Entitlement, error) {
	payload := outcome.Payload

	if payload.Receipt.BundleID != expectedBundleID {
		slog.Warn("receipt bundle ID mismatch", "expected", expectedBundleID)
		return nil, ErrBundleMismatch
	}

	environment := strings.ToLower(outcome.Environment)

	candidates := make([]ApplePurchase, 0, len(payload.Receipt.InApp)+len(payload.LatestReceiptInfo))
	candidates = append(candidates, payload.Receipt.InApp...)
	candidates = append(candidates, payload.LatestReceiptInfo...)

	premium := candidates[:0:0]
	for _, p := range candidates {
		if p.ProductID != "" && r.catalog.Contains(p.ProductID) {
			premium = append(premium, p)
		}
	}

	if len(premium) == 0 {
		slog.Info("no premium purchases in receipt", "candidates", len(candidates))
		return &Entitlement{IsPremium: false, Environment: environment}, nil
	}

	// A lifetime purchase is authoritative over any subscription state,
	// wherever it sits in the merged list.
	for _, p := range premium {
		if r.catalog.IsLifetime(p.ProductID) {
			slog.Info("active lifetime purchase found", "product_id", p.ProductID)
			return &Entitlement{
				IsPremium:   true,
				ProductID:   p.ProductID,
				Environment: environment,
			}, nil
		}
	}

	now := r.now()
	for _, p := range premium {
		expiresAt, ok := p.ExpiresAt()
		if !ok {
			continue
		}
		if expiresAt.After(now) {
			slog.Info("active subscription found", "product_id", p.ProductID, "expires_at", expiresAt)
			return &Entitlement{
				IsPremium:   true,
				ProductID:   p.ProductID,
				ExpiresAt:   &expiresAt,
				Environment: environment,
			}, nil
		}
	}

	slog.Info("no active premium subscription", "checked", len(premium))
	return &Entitlement{IsPremium: false, Environment: environment}, nil
}
