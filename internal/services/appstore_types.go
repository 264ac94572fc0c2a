package services

import (
	"strconv"
	"time"
)

const (
	EnvironmentProduction = "Production"
	EnvironmentSandbox    = "Sandbox"
)

// verifyReceiptRequest is the JSON body POSTed to Apple's verifyReceipt
// endpoints. Field names are Apple's, hyphens included.
type verifyReceiptRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

// AppleResponse is the subset of Apple's verifyReceipt response this
// backend consumes. Numeric fields arrive as strings on the wire.
type AppleResponse struct {
	Status            int             `json:"status"`
	Environment       string          `json:"environment"`
	Receipt           AppleReceipt    `json:"receipt"`
	LatestReceiptInfo []ApplePurchase `json:"latest_receipt_info"`
	LatestReceipt     string          `json:"latest_receipt"`
}

type AppleReceipt struct {
	BundleID string          `json:"bundle_id"`
	InApp    []ApplePurchase `json:"in_app"`
}

type ApplePurchase struct {
	ProductID             string `json:"product_id"`
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	PurchaseDateMS        string `json:"purchase_date_ms"`
	ExpiresDateMS         string `json:"expires_date_ms"`
	IsTrialPeriod         string `json:"is_trial_period"`
}

// ExpiresAt parses Apple's millisecond-epoch expiry. The second return
// is false for lifetime purchases, which carry no expires_date_ms.
func (p ApplePurchase) ExpiresAt() (time.Time, bool) {
	if p.ExpiresDateMS == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(p.ExpiresDateMS, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func (p ApplePurchase) IsTrial() bool {
	return p.IsTrialPeriod == "true"
}

// VerificationOutcome is the result of one verification attempt against
// Apple. Constructed once, consumed by the resolver, then discarded.
type VerificationOutcome struct {
	Succeeded   bool
	StatusCode  int
	Environment string
	Payload     *AppleResponse
}
