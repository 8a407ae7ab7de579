package tracker

import "errors"

// Market data errors. They are handled at the cache/adapter boundary and only
// surface past ingestion and refresh as a per item skip.
var (
	// ErrQuoteUnavailable is returned when every price tier failed for a ticker.
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrNoData is returned by adapters that have no value for a requested tier.
	ErrNoData = errors.New("no data")
)

// Input errors.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidRow   = errors.New("invalid input row")
)

// Profile lifecycle errors, surfaced to callers as refusals.
var (
	ErrDuplicateProfile   = errors.New("profile already exists")
	ErrUnknownProfile     = errors.New("unknown profile")
	ErrLastProfile        = errors.New("cannot delete the last remaining profile")
	ErrInvalidProfileName = errors.New("invalid profile name")
	ErrNoSuchHolding      = errors.New("no such holding")
)

// Remote store errors.
var (
	ErrRemoteUnreachable = errors.New("remote store unreachable")
	ErrRemoteRejected    = errors.New("remote store rejected the request")
	ErrNotFound          = errors.New("document not found")
	ErrMalformedDocument = errors.New("malformed document")
)
