package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

type entry struct {
	rates   []shipper.RateDetails
	expires time.Time
}

// Memory is an in-process rate cache with a fixed TTL.
type Memory struct {
	ttl     time.Duration
	now     func() time.Time
	options options

	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemory creates a memory cache whose entries live for ttl.
func NewMemory(ttl time.Duration, opts ...Option) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		options: buildOptions(opts),
		entries: make(map[string]entry),
	}
}

// WithClock replaces the time source. Used by tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Lookup returns the cached rates for carrier and req, if still fresh.
func (m *Memory) Lookup(_ context.Context, carrier string, req *shipper.RateRequest) ([]shipper.RateDetails, bool) {
	key, err := Key(carrier, req)
	if err != nil {
		return nil, false
	}

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if ok && m.now().After(e.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		ok = false
	}
	m.options.record(carrier, ok)
	if !ok {
		return nil, false
	}
	return append([]shipper.RateDetails(nil), e.rates...), true
}

// Store caches rates for carrier and req.
func (m *Memory) Store(_ context.Context, carrier string, req *shipper.RateRequest, rates []shipper.RateDetails) {
	key, err := Key(carrier, req)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{
		rates:   append([]shipper.RateDetails(nil), rates...),
		expires: m.now().Add(m.ttl),
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ shipper.RateCache = (*Memory)(nil)
