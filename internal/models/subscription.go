package models

import (
	"time"

	"gorm.io/datatypes"
)

// Subscription is the persisted entitlement for one user: the outcome of
// the most recent successful receipt verification. One row per user,
// upserted on every premium-positive resolution.
type Subscription struct {
	UserID                string         `gorm:"size:128;primaryKey" json:"user_id"`
	ProductID             string         `gorm:"size:255;not null" json:"product_id"`
	IsPremium             bool           `gorm:"not null;default:false" json:"is_premium"`
	ExpiresAt             *time.Time     `gorm:"index" json:"expires_at"`
	Environment           string         `gorm:"size:20" json:"environment"`
	OriginalTransactionID string         `gorm:"size:100;index" json:"-"`
	ReceiptFingerprint    string         `gorm:"size:16" json:"-"`
	LatestReceiptInfo     datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}
