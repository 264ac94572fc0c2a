package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/braindumpster/backend/internal/dto"
	"github.com/braindumpster/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoSubscription = errors.New("no subscription on record")

// SubscriptionService persists resolved entitlements and serves the
// stored premium state back to clients.
type SubscriptionService struct {
	db               *gorm.DB
	resolver         *Resolver
	expectedBundleID string
}

func NewSubscriptionService(db *gorm.DB, resolver *Resolver, expectedBundleID string) *SubscriptionService {
	return &SubscriptionService{db: db, resolver: resolver, expectedBundleID: expectedBundleID}
}

// SaveEntitlement upserts the resolved entitlement for a user. One row
// per user; later verifications overwrite earlier state.
func (s *SubscriptionService) SaveEntitlement(userID string, ent *Entitlement, fingerprint string, latestInfo []ApplePurchase) error {
	row := models.Subscription{
		UserID:             userID,
		ProductID:          ent.ProductID,
		IsPremium:          ent.IsPremium,
		ExpiresAt:          ent.ExpiresAt,
		Environment:        ent.Environment,
		ReceiptFingerprint: fingerprint,
	}

	for _, p := range latestInfo {
		if p.ProductID == ent.ProductID {
			row.OriginalTransactionID = p.OriginalTransactionID
			break
		}
	}

	if len(latestInfo) > 0 {
		if b, err := json.Marshal(latestInfo); err == nil {
			row.LatestReceiptInfo = datatypes.JSON(b)
		}
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id", "is_premium", "expires_at", "environment",
			"receipt_fingerprint", "original_transaction_id",
			"latest_receipt_info", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save entitlement: %w", err)
	}

	slog.Info("entitlement saved",
		"user_id", userID,
		"product_id", ent.ProductID,
		"environment", ent.Environment,
	)
	return nil
}

// Status returns the stored entitlement for a user.
func (s *SubscriptionService) Status(userID string) (*models.Subscription, error) {
	var row models.Subscription
	if err := s.db.First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, err
	}
	return &row, nil
}

// HandleAppStoreNotification re-resolves the entitlement carried by an
// App Store server notification and updates the matching subscription
// row. Notifications carry no user identity; the row is located via the
// original transaction ID recorded at verification time.
func (s *SubscriptionService) HandleAppStoreNotification(n *dto.AppStoreNotification) error {
	purchases := make([]ApplePurchase, 0, len(n.UnifiedReceipt.LatestReceiptInfo))
	for _, raw := range n.UnifiedReceipt.LatestReceiptInfo {
		var p ApplePurchase
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("malformed latest_receipt_info entry: %w", err)
		}
		purchases = append(purchases, p)
	}
	if len(purchases) == 0 {
		slog.Info("app store notification without receipt info, ignoring", "type", n.NotificationType)
		return nil
	}

	environment := n.UnifiedReceipt.Environment
	if environment == "" {
		environment = n.Environment
	}

	outcome := &VerificationOutcome{
		Succeeded:   true,
		StatusCode:  0,
		Environment: environment,
		Payload: &AppleResponse{
			Environment:       environment,
			Receipt:           AppleReceipt{BundleID: n.Bid},
			LatestReceiptInfo: purchases,
		},
	}

	ent, err := s.resolver.Resolve(outcome, s.expectedBundleID)
	if err != nil {
		return err
	}

	txIDs := originalTransactionIDs(purchases)
	if len(txIDs) == 0 {
		slog.Warn("notification without transaction IDs, ignoring", "type", n.NotificationType)
		return nil
	}

	var row models.Subscription
	err = s.db.
		Where("original_transaction_id IN ?", txIDs).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("notification for unknown subscription, ignoring", "type", n.NotificationType)
			return nil
		}
		return err
	}

	return s.SaveEntitlement(row.UserID, ent, row.ReceiptFingerprint, purchases)
}

func originalTransactionIDs(purchases []ApplePurchase) []string {
	ids := make([]string, 0, len(purchases))
	for _, p := range purchases {
		if p.OriginalTransactionID != "" {
			ids = append(ids, p.OriginalTransactionID)
		}
	}
	return ids
}
