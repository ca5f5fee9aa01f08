package shipper

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Validation
// ============================================================================

// FieldIssue is a single validation failure. Index is the parcel position,
// or -1 for shipment-level fields.
type FieldIssue struct {
	Index  int
	Field  string
	Reason string
}

func (i FieldIssue) String() string {
	if i.Index < 0 {
		return fmt.Sprintf("%s: %s", i.Field, i.Reason)
	}
	return fmt.Sprintf("parcel[%d].%s: %s", i.Index, i.Field, i.Reason)
}

// ValidationError reports every invalid input found in a request.
type ValidationError struct {
	Carrier string
	Issues  []FieldIssue
}

// NewValidationError creates a ValidationError for the given carrier.
func NewValidationError(carrier string, issues ...FieldIssue) *ValidationError {
	return &ValidationError{Carrier: carrier, Issues: issues}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	prefix := "validation failed"
	if e.Carrier != "" {
		prefix = e.Carrier + " " + prefix
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

// Is matches ErrInvalidPackage when any issue concerns a parcel.
func (e *ValidationError) Is(target error) bool {
	if target != ErrInvalidPackage {
		return false
	}
	for _, issue := range e.Issues {
		if issue.Index >= 0 {
			return true
		}
	}
	return false
}

// Add appends an issue.
func (e *ValidationError) Add(index int, field, reason string) {
	e.Issues = append(e.Issues, FieldIssue{Index: index, Field: field, Reason: reason})
}

// Indexes returns the distinct parcel indexes that failed validation, in order.
func (e *ValidationError) Indexes() []int {
	seen := make(map[int]bool)
	var out []int
	for _, issue := range e.Issues {
		if issue.Index < 0 || seen[issue.Index] {
			continue
		}
		seen[issue.Index] = true
		out = append(out, issue.Index)
	}
	return out
}

// OrNil returns nil when no issue was recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}

// ============================================================================
// Mapping
// ============================================================================

// UnsupportedMappingError reports a canonical key that has no carrier code.
type UnsupportedMappingError struct {
	Carrier string
	Kind    string
	Key     string
}

// Error implements the error interface.
func (e *UnsupportedMappingError) Error() string {
	return fmt.Sprintf("%s does not support %s %q", e.Carrier, e.Kind, e.Key)
}

// Is matches ErrUnsupported.
func (e *UnsupportedMappingError) Is(target error) bool {
	return target == ErrUnsupported
}

// ============================================================================
// Carrier responses
// ============================================================================

// CarrierResponseError represents an error reported by a shipping carrier
// inside an otherwise readable response.
type CarrierResponseError struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Messages   []Message
	Cause      error
}

// Error implements the error interface.
func (e *CarrierResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CarrierResponseError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for CarrierResponseError.
func (e *CarrierResponseError) Is(target error) bool {
	t, ok := target.(*CarrierResponseError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewCarrierResponseError creates a new CarrierResponseError.
func NewCarrierResponseError(carrier, code, message string) *CarrierResponseError {
	return &CarrierResponseError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *CarrierResponseError) WithCause(err error) *CarrierResponseError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *CarrierResponseError) WithStatusCode(code int) *CarrierResponseError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *CarrierResponseError) WithRetryable(retryable bool) *CarrierResponseError {
	e.Retryable = retryable
	return e
}

// ErrorFromMessages builds a CarrierResponseError from the first error
// message, keeping every message attached. It returns nil when msgs holds
// no error.
func ErrorFromMessages(carrier string, msgs []Message) error {
	for _, m := range msgs {
		if m.Severity != SeverityError {
			continue
		}
		err := NewCarrierResponseError(carrier, m.Code, m.Message)
		err.Messages = msgs
		return err
	}
	return nil
}

// ============================================================================
// Transport
// ============================================================================

// TransportError reports a failure to reach a carrier or to obtain a
// response from it.
type TransportError struct {
	Carrier    string
	Operation  string
	StatusCode int
	Timeout    bool
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Carrier)
	b.WriteString(" transport error")
	if e.Operation != "" {
		b.WriteString(" (" + e.Operation + ")")
	}
	if e.Timeout {
		b.WriteString(": timeout")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for common shipping scenarios.
var (
	// ErrServiceUnavailable indicates the carrier service is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidPackage indicates package dimensions or weight are invalid.
	ErrInvalidPackage = errors.New("invalid package")

	// ErrUnsupported indicates a canonical key has no carrier mapping.
	ErrUnsupported = errors.New("unsupported by carrier")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrLabelNotAvailable indicates the carrier returned no label.
	ErrLabelNotAvailable = errors.New("label not available")
)

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Retryable
	}
	var carrierErr *CarrierResponseError
	if errors.As(err, &carrierErr) {
		return carrierErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}
