package dto

import "encoding/json"

// AppStoreNotification is Apple's server-to-server notification body
// (version 1). Only the fields this backend acts on are mapped; the
// unified receipt carries the same latest_receipt_info entries as a
// verifyReceipt response.
type AppStoreNotification struct {
	NotificationType      string         `json:"notification_type"`
	Environment           string         `json:"environment"`
	Bid                   string         `json:"bid"`
	AutoRenewProductID    string         `json:"auto_renew_product_id"`
	AutoRenewStatus       string         `json:"auto_renew_status"`
	Password              string         `json:"password"`
	OriginalTransactionID json.Number    `json:"original_transaction_id"`
	UnifiedReceipt        UnifiedReceipt `json:"unified_receipt"`
}

type UnifiedReceipt struct {
	Status             int               `json:"status"`
	Environment        string            `json:"environment"`
	LatestReceipt      string            `json:"latest_receipt"`
	LatestReceiptInfo  []json.RawMessage `json:"latest_receipt_info"`
	PendingRenewalInfo []json.RawMessage `json:"pending_renewal_info"`
}
