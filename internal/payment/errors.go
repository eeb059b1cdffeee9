package payment

import "errors"

var (
	// ErrValidation marks deliveries that must never be retried: bad
	// signatures, stale timestamps, malformed payloads, replayed nonces.
	ErrValidation = errors.New("callback rejected")
	// ErrNotFound marks callbacks for orders this service does not know;
	// they are logged for manual reconciliation, not retried.
	ErrNotFound = errors.New("order not found")
	// ErrRetryable marks transient failures; the order stays pending and
	// the gateway's own retry policy is relied upon.
	ErrRetryable = errors.New("settlement temporarily unavailable")
)
