package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for terminal request failures. The transport adapter maps
// these to distinct status codes (403 vs 404 vs 409); nothing in the core is
// fatal to the process.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("playlist not found")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrDuplicateCollaborator = errors.New("user is already a collaborator")
	ErrUnknownUser           = errors.New("unknown user")
)

// Reason codes attached to MoodParseError so callers can tell transport
// failures from malformed upstream output without parsing error strings.
const (
	ParseReasonUpstream    = "upstream_failed"
	ParseReasonNoJSON      = "no_json_object"
	ParseReasonInvalidJSON = "invalid_json"
	ParseReasonInvalidSpec = "invalid_spec"
)

// MoodParseError reports that the text-generation upstream was unreachable
// or produced output that could not be turned into a valid MoodSpec. RawText
// keeps the upstream response for diagnosis; it must never be exposed
// verbatim to untrusted callers.
type MoodParseError struct {
	Reason  string
	RawText string
	Err     error
}

func (e *MoodParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mood parse failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("mood parse failed (%s)", e.Reason)
}

func (e *MoodParseError) Unwrap() error { return e.Err }

// CatalogAuthError reports a failed credential exchange or a rejected token
// at the catalog service.
type CatalogAuthError struct {
	Err error
}

func (e *CatalogAuthError) Error() string {
	return fmt.Sprintf("catalog authentication failed: %v", e.Err)
}

func (e *CatalogAuthError) Unwrap() error { return e.Err }

// CatalogQueryError reports a failed catalog search or recommendation
// request. RateLimited marks quota responses so callers can back off.
type CatalogQueryError struct {
	RateLimited bool
	Err         error
}

func (e *CatalogQueryError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("catalog rate limited: %v", e.Err)
	}
	return fmt.Sprintf("catalog query failed: %v", e.Err)
}

func (e *CatalogQueryError) Unwrap() error { return e.Err }
