package shipper_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/carrierbridge/pkg/shipper"
)

func TestCarrierResponseError_Error(t *testing.T) {
	err := shipper.NewCarrierResponseError("freightcom", "INVALID_ADDRESS", "Invalid postal code")
	assert.Equal(t, "freightcom error (INVALID_ADDRESS): Invalid postal code", err.Error())
}

func TestCarrierResponseError_ErrorWithCause(t *testing.T) {
	cause := errors.New("malformed payload")
	err := shipper.NewCarrierResponseError("freightcom", "PARSE_ERROR", "Unreadable response").WithCause(cause)
	assert.Contains(t, err.Error(), "Unreadable response")
	assert.Contains(t, err.Error(), "malformed payload")
	assert.True(t, errors.Is(err, cause))
}

func TestCarrierResponseError_Is(t *testing.T) {
	err1 := shipper.NewCarrierResponseError("freightcom", "INVALID_ADDRESS", "Invalid postal code")
	err2 := shipper.NewCarrierResponseError("canadapost", "INVALID_ADDRESS", "Different message")
	err3 := shipper.NewCarrierResponseError("freightcom", "DIFFERENT_CODE", "Different error")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestCarrierResponseError_Builders(t *testing.T) {
	err := shipper.NewCarrierResponseError("freightcom", "RATE_LIMIT", "Too many requests").
		WithStatusCode(429).
		WithRetryable(true)
	assert.Equal(t, 429, err.StatusCode)
	assert.True(t, shipper.IsRetryable(err))
}

func TestErrorFromMessages(t *testing.T) {
	msgs := []shipper.Message{
		{CarrierName: "purolator", Severity: shipper.SeverityWarning, Code: "W1", Message: "Residential surcharge applied"},
		{CarrierName: "purolator", Severity: shipper.SeverityError, Code: "1100541", Message: "Invalid receiver postal code"},
	}

	err := shipper.ErrorFromMessages("purolator", msgs)
	require.Error(t, err)

	var carrierErr *shipper.CarrierResponseError
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, "1100541", carrierErr.Code)
	assert.Len(t, carrierErr.Messages, 2)

	assert.NoError(t, shipper.ErrorFromMessages("purolator", msgs[:1]))
}

func TestValidationError_ReportsEveryIssue(t *testing.T) {
	verr := shipper.NewValidationError("canadapost")
	verr.Add(0, "weight", "is required")
	verr.Add(2, "height", "is required")
	verr.Add(2, "width", "is required")
	verr.Add(-1, "options.insurance", "expected a number")

	assert.Equal(t, []int{0, 2}, verr.Indexes())
	assert.Contains(t, verr.Error(), "parcel[0].weight: is required")
	assert.Contains(t, verr.Error(), "parcel[2].height: is required")
	assert.Contains(t, verr.Error(), "options.insurance: expected a number")
	assert.True(t, errors.Is(verr, shipper.ErrInvalidPackage))
}

func TestValidationError_OrNil(t *testing.T) {
	verr := shipper.NewValidationError("canadapost")
	assert.NoError(t, verr.OrNil())

	verr.Add(-1, "service", "is required")
	assert.Error(t, verr.OrNil())
	assert.False(t, errors.Is(verr, shipper.ErrInvalidPackage))
}

func TestUnsupportedMappingError(t *testing.T) {
	err := &shipper.UnsupportedMappingError{Carrier: "purolator", Kind: "service", Key: "ups_ground"}
	assert.Equal(t, `purolator does not support service "ups_ground"`, err.Error())
	assert.True(t, errors.Is(fmt.Errorf("rates: %w", err), shipper.ErrUnsupported))
}

func TestTransportError(t *testing.T) {
	err := &shipper.TransportError{
		Carrier:   "freightcom",
		Operation: "rates",
		Timeout:   true,
		Retryable: true,
		Cause:     context.DeadlineExceeded,
	}
	assert.Equal(t, "freightcom transport error (rates): timeout: context deadline exceeded", err.Error())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, shipper.IsRetryable(err))

	status := &shipper.TransportError{Carrier: "purolator", StatusCode: 503}
	assert.Equal(t, "purolator transport error: HTTP 503", status.Error())
	assert.False(t, shipper.IsRetryable(status))
}

func TestIsRetryable_Sentinels(t *testing.T) {
	assert.True(t, shipper.IsRetryable(shipper.ErrServiceUnavailable))
	assert.True(t, shipper.IsRetryable(shipper.ErrRateLimitExceeded))
	assert.False(t, shipper.IsRetryable(shipper.ErrInvalidPackage))
	assert.False(t, shipper.IsRetryable(shipper.ErrAuthenticationFailed))
}

func TestMessageFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"carrier", shipper.NewCarrierResponseError("x", "E42", "bad"), "E42"},
		{"transport", &shipper.TransportError{Carrier: "x"}, "TRANSPORT_ERROR"},
		{"timeout", &shipper.TransportError{Carrier: "x", Timeout: true}, "TIMEOUT"},
		{"validation", shipper.NewValidationError("x", shipper.FieldIssue{Index: 0, Field: "weight", Reason: "is required"}), "VALIDATION_ERROR"},
		{"mapping", &shipper.UnsupportedMappingError{Carrier: "x", Kind: "service", Key: "k"}, "UNSUPPORTED"},
		{"not found", fmt.Errorf("%w: x", shipper.ErrCarrierNotFound), "CARRIER_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := shipper.MessageFromError("x", tt.err)
			assert.Equal(t, tt.code, msg.Code)
			assert.Equal(t, shipper.SeverityError, msg.Severity)
			assert.Equal(t, "x", msg.CarrierName)
		})
	}
}

func TestWarningFromError(t *testing.T) {
	msg := shipper.WarningFromError("x", fmt.Errorf("job %q: %w", "label", &shipper.TransportError{Carrier: "x", Timeout: true}))

	assert.Equal(t, "TIMEOUT", msg.Code)
	assert.Equal(t, shipper.SeverityWarning, msg.Severity)
	assert.False(t, shipper.HasErrors([]shipper.Message{msg}))
}
