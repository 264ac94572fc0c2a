package dto

import "time"

// VerifyReceiptRequest is the payload sent by the iOS client after a
// StoreKit purchase or restore. Only ReceiptData is required.
type VerifyReceiptRequest struct {
	ReceiptData string      `json:"receiptData"`
	UserID      string      `json:"userId,omitempty"`
	DeviceInfo  *DeviceInfo `json:"deviceInfo,omitempty"`
	AppVersion  string      `json:"appVersion,omitempty"`
	BundleID    string      `json:"bundleId,omitempty"`
}

type DeviceInfo struct {
	Model     string `json:"model"`
	OSVersion string `json:"osVersion"`
	Locale    string `json:"locale,omitempty"`
}

// VerifyReceiptResponse mirrors what the iOS ReceiptValidationService
// decodes. ExpirationDate is absent for lifetime purchases.
type VerifyReceiptResponse struct {
	Success        bool       `json:"success"`
	IsPremium      bool       `json:"isPremium"`
	ProductID      string     `json:"productId,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	Environment    string     `json:"environment,omitempty"`
	Message        string     `json:"message"`
}

type SubscriptionStatusResponse struct {
	IsPremium   bool       `json:"isPremium"`
	ProductID   string     `json:"productId,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Environment string     `json:"environment,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}
