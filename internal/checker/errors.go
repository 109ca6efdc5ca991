package checker

import "errors"

// Failure kinds surfaced by a cycle. Each aborts the cycle with no partial
// persisted mutation; recovery happens on the next scheduled invocation.
var (
	// ErrAuthenticationFailed means the page was still unauthenticated
	// after the single bounded re-login attempt.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrFetchFailed is a transport or timeout failure on page retrieval.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrParseFailed means the page structure was unrecognized. Distinct
	// from "authenticated but no pending games", which is a valid empty
	// snapshot.
	ErrParseFailed = errors.New("parse failed")

	// ErrDeliveryFailed means the webhook rejected the alert or was
	// unreachable. The persisted fingerprint must not advance past a state
	// for which delivery failed.
	ErrDeliveryFailed = errors.New("notification delivery failed")
)
