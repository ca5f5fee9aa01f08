// Package pipeline runs ordered, dependent carrier calls. Each stage produces
// a job from the previous stage's raw response; the engine executes jobs
// strictly in declaration order.
package pipeline

import (
	"errors"
)

// Request is a carrier payload whose wire form is produced on demand.
type Request interface {
	Serialize() ([]byte, error)
}

// ErrNoSerializer is returned when a Serializable has no serializer.
var ErrNoSerializer = errors.New("pipeline: request has no serializer")

// Serializable pairs a native carrier request with the function that
// renders it. Construction never serializes.
type Serializable[T any] struct {
	value      T
	serializer func(T) ([]byte, error)
	ctx        map[string]string
}

// New wraps value with its serializer.
func New[T any](value T, serializer func(T) ([]byte, error)) Serializable[T] {
	return Serializable[T]{value: value, serializer: serializer}
}

// Text wraps a payload that is already in wire form. An empty string
// produces an empty body.
func Text(body string) Serializable[string] {
	return New(body, func(s string) ([]byte, error) { return []byte(s), nil })
}

// Value returns the native request.
func (s Serializable[T]) Value() T {
	return s.value
}

// Serialize renders the request. Every call invokes the serializer again.
func (s Serializable[T]) Serialize() ([]byte, error) {
	if s.serializer == nil {
		return nil, ErrNoSerializer
	}
	return s.serializer(s.value)
}

// WithContext returns a copy carrying key=value for the transport layer.
func (s Serializable[T]) WithContext(key, value string) Serializable[T] {
	ctx := make(map[string]string, len(s.ctx)+1)
	for k, v := range s.ctx {
		ctx[k] = v
	}
	ctx[key] = value
	s.ctx = ctx
	return s
}

// Context returns the value stored under key, or "".
func (s Serializable[T]) Context(key string) string {
	return s.ctx[key]
}

// Contextual is implemented by requests carrying transport context.
type Contextual interface {
	Context(key string) string
}

// ContextOf returns the value stored under key in req, if req carries any.
func ContextOf(req Request, key string) string {
	if c, ok := req.(Contextual); ok {
		return c.Context(key)
	}
	return ""
}
