package units

import (
	"fmt"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// Entry declares one key of a Table: either a carrier code or an alias to
// another key of the same table.
type Entry struct {
	Key    string
	Value  string
	Target string
}

// Value maps a canonical key to a carrier code.
func Value(key, value string) Entry {
	return Entry{Key: key, Value: value}
}

// Alias maps a unified key to another key of the same table.
func Alias(key, target string) Entry {
	return Entry{Key: key, Target: target}
}

// Table is an immutable bidirectional mapping between canonical keys and a
// carrier's codes. Specific registrations win over aliases of the same key.
//
// A nil *Table behaves as an empty table.
type Table struct {
	carrier string
	kind    Kind
	keys    []string
	values  map[string]string
	aliased map[string]bool
	reverse map[string][]string
}

// NewTable builds a Table. It panics on duplicate codes for the same key
// and on aliases whose target does not exist, both of which are
// programming errors in a carrier's vocabulary.
func NewTable(carrier string, kind Kind, entries ...Entry) *Table {
	t := &Table{
		carrier: carrier,
		kind:    kind,
		values:  make(map[string]string),
		aliased: make(map[string]bool),
		reverse: make(map[string][]string),
	}

	for _, e := range entries {
		if e.Target != "" {
			continue
		}
		if _, dup := t.values[e.Key]; dup {
			panic(fmt.Sprintf("units: %s %s table declares %q twice", carrier, kind, e.Key))
		}
		t.values[e.Key] = e.Value
		t.keys = append(t.keys, e.Key)
	}

	var aliases []string
	for _, e := range entries {
		if e.Target == "" {
			continue
		}
		if _, concrete := t.values[e.Key]; concrete {
			continue
		}
		value, ok := t.values[e.Target]
		if !ok {
			panic(fmt.Sprintf("units: %s %s alias %q targets unknown key %q", carrier, kind, e.Key, e.Target))
		}
		t.values[e.Key] = value
		t.aliased[e.Key] = true
		t.keys = append(t.keys, e.Key)
		aliases = append(aliases, e.Key)
	}

	// Specific keys first so Match prefers them.
	for _, key := range t.keys {
		if !t.aliased[key] {
			t.reverse[t.values[key]] = append(t.reverse[t.values[key]], key)
		}
	}
	for _, key := range aliases {
		t.reverse[t.values[key]] = append(t.reverse[t.values[key]], key)
	}
	return t
}

// Carrier returns the carrier the table belongs to.
func (t *Table) Carrier() string {
	if t == nil {
		return ""
	}
	return t.carrier
}

// Kind returns the vocabulary the table maps.
func (t *Table) Kind() Kind {
	if t == nil {
		return ""
	}
	return t.kind
}

// Resolve returns the carrier code for key.
func (t *Table) Resolve(key string) (string, error) {
	if t != nil {
		if v, ok := t.values[key]; ok {
			return v, nil
		}
	}
	return "", &shipper.UnsupportedMappingError{Carrier: t.Carrier(), Kind: string(t.Kind()), Key: key}
}

// Has reports whether key is mapped.
func (t *Table) Has(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t.values[key]
	return ok
}

// ValueOrKey returns the carrier code for key, or key itself when unmapped.
func (t *Table) ValueOrKey(key string) string {
	if v, err := t.Resolve(key); err == nil {
		return v
	}
	return key
}

// Match returns the canonical key for a carrier code, preferring specific
// keys over aliases. Unknown codes are returned unchanged.
func (t *Table) Match(value string) string {
	if t != nil {
		if keys := t.reverse[value]; len(keys) > 0 {
			return keys[0]
		}
	}
	return value
}

// First returns the first of keys the table maps, with its code.
func (t *Table) First(keys []string) (key, value string, ok bool) {
	for _, k := range keys {
		if v, err := t.Resolve(k); err == nil {
			return k, v, true
		}
	}
	return "", "", false
}

// Keys returns every mapped key in declaration order, specific keys first.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// IsAlias reports whether key resolves through an alias.
func (t *Table) IsAlias(key string) bool {
	return t != nil && t.aliased[key]
}
