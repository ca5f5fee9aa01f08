package shipper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single carrier call when no timeout was registered.
const DefaultTimeout = 30 * time.Second

// Target names one carrier participating in a fan-out. Shipper is nil when
// the name is not registered.
type Target struct {
	Name    string
	Shipper Shipper
	Timeout time.Duration
}

// Outcome holds one carrier's share of a fan-out.
type Outcome[T any] struct {
	Carrier  string
	Result   T
	Messages []Message
	Err      error
	Duration time.Duration
}

// Call is the per-carrier operation run by FanOut.
type Call[T any] func(ctx context.Context, s Shipper) (T, []Message, error)

type (
	RateOutcome     = Outcome[[]RateDetails]
	TrackingOutcome = Outcome[[]TrackingDetails]
)

// FanOut runs call against every target concurrently and returns one
// outcome per target, in target order. A failing, panicking or slow carrier
// only affects its own outcome.
func FanOut[T any](ctx context.Context, operation string, targets []Target, call Call[T]) []Outcome[T] {
	outcomes := make([]Outcome[T], len(targets))

	var g errgroup.Group
	for i, target := range targets {
		outcomes[i].Carrier = target.Name
		if target.Shipper == nil {
			outcomes[i].Err = fmt.Errorf("%w: %s", ErrCarrierNotFound, target.Name)
			continue
		}
		g.Go(func() error {
			outcomes[i] = invoke(ctx, operation, target, call)
			return nil // Don't fail the group, continue with other carriers
		})
	}

	_ = g.Wait()
	return outcomes
}

type callResult[T any] struct {
	value T
	msgs  []Message
	err   error
}

func invoke[T any](ctx context.Context, operation string, target Target, call Call[T]) Outcome[T] {
	start := time.Now()
	out := Outcome[T]{Carrier: target.Name}

	timeout := target.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult[T]{err: fmt.Errorf("%s %s panicked: %v", target.Name, operation, r)}
			}
		}()
		v, msgs, err := call(cctx, target.Shipper)
		done <- callResult[T]{value: v, msgs: msgs, err: err}
	}()

	select {
	case r := <-done:
		out.Result, out.Messages, out.Err = r.value, r.msgs, r.err
		var transportErr *TransportError
		if out.Err != nil && cctx.Err() != nil && !errors.As(out.Err, &transportErr) {
			out.Err = contextError(target.Name, operation, cctx.Err(), out.Err)
		}
	case <-cctx.Done():
		out.Err = contextError(target.Name, operation, cctx.Err(), cctx.Err())
	}

	out.Duration = time.Since(start)
	return out
}

func contextError(carrier, operation string, ctxErr, cause error) *TransportError {
	return &TransportError{
		Carrier:   carrier,
		Operation: operation,
		Timeout:   errors.Is(ctxErr, context.DeadlineExceeded),
		Retryable: errors.Is(ctxErr, context.DeadlineExceeded),
		Cause:     cause,
	}
}

// MessageFromError converts a failed outcome into a carrier Message.
func MessageFromError(carrier string, err error) Message {
	msg := Message{
		CarrierName: carrier,
		CarrierID:   carrier,
		Severity:    SeverityError,
		Message:     err.Error(),
	}

	var (
		carrierErr    *CarrierResponseError
		transportErr  *TransportError
		validationErr *ValidationError
		mappingErr    *UnsupportedMappingError
	)
	switch {
	case errors.As(err, &carrierErr):
		msg.Code = carrierErr.Code
		msg.Message = carrierErr.Message
	case errors.As(err, &transportErr):
		msg.Code = "TRANSPORT_ERROR"
		if transportErr.Timeout {
			msg.Code = "TIMEOUT"
		}
	case errors.As(err, &validationErr):
		msg.Code = "VALIDATION_ERROR"
	case errors.As(err, &mappingErr):
		msg.Code = "UNSUPPORTED"
	case errors.Is(err, ErrCarrierNotFound):
		msg.Code = "CARRIER_NOT_FOUND"
	}
	return msg
}

// WarningFromError is MessageFromError at warning severity. It reports a
// failed follow-up call whose primary result was still produced.
func WarningFromError(carrier string, err error) Message {
	msg := MessageFromError(carrier, err)
	msg.Severity = SeverityWarning
	return msg
}

// CollectRates flattens rate outcomes into one rate list, in carrier order,
// and one message list in which every failed carrier contributes an error.
func CollectRates(outcomes []RateOutcome) ([]RateDetails, []Message) {
	var (
		rates []RateDetails
		msgs  []Message
	)
	for _, o := range outcomes {
		rates = append(rates, o.Result...)
		msgs = append(msgs, o.Messages...)
		if o.Err != nil && !HasErrors(o.Messages) {
			msgs = append(msgs, MessageFromError(o.Carrier, o.Err))
		}
	}
	return rates, msgs
}
