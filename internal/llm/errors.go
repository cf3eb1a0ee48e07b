package llm

import "errors"

// Sentinel errors returned by the client. Callers branch on these with
// errors.Is; everything else arriving from the transport is wrapped.
var (
	// ErrConfig marks a misconfigured client: missing API key or a
	// non-https endpoint. These are never retried.
	ErrConfig = errors.New("llm: invalid configuration")

	// ErrAuth marks a rejected credential (HTTP 401). Retrying with the
	// same key cannot succeed.
	ErrAuth = errors.New("llm: authentication failed")

	// ErrRateLimited marks HTTP 429 from the provider.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrServerTransient marks 5xx responses worth retrying.
	ErrServerTransient = errors.New("llm: transient server error")

	// ErrProtocol marks a response the client cannot use: unexpected
	// status, undecodable body, or an empty choice list.
	ErrProtocol = errors.New("llm: protocol error")

	// ErrAllModelsFailed is returned by Race when every candidate model
	// failed or produced empty output across all rounds.
	ErrAllModelsFailed = errors.New("llm: all models failed")
)
