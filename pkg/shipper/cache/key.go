// Package cache stores carrier rate lists so repeated quotes skip the
// network.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

const keyPrefix = "rates:"

// Key derives the cache key for a carrier and request. Requests that
// marshal identically share a key.
func Key(carrier string, req *shipper.RateRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return keyPrefix + carrier + ":" + hex.EncodeToString(sum[:]), nil
}

// Observer is notified of every lookup.
type Observer interface {
	ObserveCacheLookup(carrier string, hit bool)
}

// Option configures a cache.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver reports hits and misses to o.
func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

func (o options) record(carrier string, hit bool) {
	if o.observer != nil {
		o.observer.ObserveCacheLookup(carrier, hit)
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
