package services

import (
	"errors"
	"fmt"
)

var (
	// ErrReceiptMissing means the inbound request carried no receipt data.
	// Rejected before any outbound call is made.
	ErrReceiptMissing = errors.New("missing receipt data")

	// ErrVerifyTimeout means Apple did not answer within the bounded
	// timeout. Surfaced as-is so clients can retry later; never retried here.
	ErrVerifyTimeout = errors.New("request to Apple timed out")

	// ErrBundleMismatch means the receipt belongs to a different app.
	// Security boundary, always terminal.
	ErrBundleMismatch = errors.New("bundle ID mismatch")
)

// AuthorityError means Apple explicitly rejected the receipt with a
// non-zero status. Terminal; the message comes from the fixed status table.
type AuthorityError struct {
	Code    int
	Message string
}

func (e *AuthorityError) Error() string {
	return fmt.Sprintf("apple verification failed (status %d): %s", e.Code, e.Message)
}

// TransportError wraps a network-level fault below Apple's status
// protocol (DNS failure, connection reset). Not retried automatically.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "apple verification transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
