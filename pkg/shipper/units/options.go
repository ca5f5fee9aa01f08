package units

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// ValueType is the expected type of an option value.
type ValueType int

const (
	TypeFlag ValueType = iota
	TypeFloat
	TypeInt
	TypeString
)

func (t ValueType) String() string {
	switch t {
	case TypeFlag:
		return "boolean"
	case TypeFloat:
		return "number"
	case TypeInt:
		return "integer"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// OptionSpec declares one option of a carrier vocabulary.
type OptionSpec struct {
	Key    string
	Code   string
	Type   ValueType
	Target string
	Common bool
}

// Flag declares a boolean option.
func Flag(key, code string) OptionSpec {
	return OptionSpec{Key: key, Code: code, Type: TypeFlag}
}

// FloatOption declares a numeric option.
func FloatOption(key, code string) OptionSpec {
	return OptionSpec{Key: key, Code: code, Type: TypeFloat}
}

// IntOption declares an integer option.
func IntOption(key, code string) OptionSpec {
	return OptionSpec{Key: key, Code: code, Type: TypeInt}
}

// StringOption declares a text option.
func StringOption(key, code string) OptionSpec {
	return OptionSpec{Key: key, Code: code, Type: TypeString}
}

// OptionAlias maps a unified option key onto a carrier-specific one.
func OptionAlias(key, target string) OptionSpec {
	return OptionSpec{Key: key, Target: target}
}

// OptionTable is a carrier's immutable option vocabulary. The common
// options are always part of it.
type OptionTable struct {
	codes *Table
	specs map[string]OptionSpec
	order []string
}

// NewOptionTable builds an OptionTable. A carrier spec with the key of a
// common option replaces it.
func NewOptionTable(carrier string, specs ...OptionSpec) *OptionTable {
	declared := make(map[string]bool, len(specs))
	for _, s := range specs {
		declared[s.Key] = true
	}

	var all []OptionSpec
	for _, s := range CommonOptions() {
		if !declared[s.Key] {
			all = append(all, s)
		}
	}
	all = append(all, specs...)

	t := &OptionTable{specs: make(map[string]OptionSpec, len(all))}
	entries := make([]Entry, 0, len(all))
	for _, s := range all {
		if s.Target != "" {
			entries = append(entries, Alias(s.Key, s.Target))
			continue
		}
		entries = append(entries, Value(s.Key, s.Code))
		t.specs[s.Key] = s
		if !s.Common {
			t.order = append(t.order, s.Key)
		}
	}
	t.codes = NewTable(carrier, KindOption, entries...)

	for _, s := range all {
		if s.Target != "" && t.codes.IsAlias(s.Key) {
			t.specs[s.Key] = t.specs[s.Target]
		}
	}
	return t
}

// Carrier returns the carrier the table belongs to.
func (t *OptionTable) Carrier() string {
	if t == nil {
		return ""
	}
	return t.codes.Carrier()
}

// Codes returns the key to code mapping of the table.
func (t *OptionTable) Codes() *Table {
	if t == nil {
		return nil
	}
	return t.codes
}

// Spec returns the concrete spec a key resolves to.
func (t *OptionTable) Spec(key string) (OptionSpec, bool) {
	if t == nil {
		return OptionSpec{}, false
	}
	s, ok := t.specs[key]
	return s, ok
}

// ============================================================================
// Values
// ============================================================================

// OptionValue is a normalized option. The zero state means absent.
type OptionValue struct {
	Key   string
	Code  string
	Type  ValueType
	state any
}

// Present reports whether the option holds a non-default value.
func (v OptionValue) Present() bool {
	switch s := v.state.(type) {
	case bool:
		return s
	case float64:
		return s != 0
	case int:
		return s != 0
	case string:
		return s != ""
	default:
		return false
	}
}

// State returns the typed value, or nil when absent.
func (v OptionValue) State() any {
	if !v.Present() {
		return nil
	}
	return v.state
}

// Bool returns the flag value.
func (v OptionValue) Bool() bool {
	b, _ := v.state.(bool)
	return b
}

// Float returns the numeric value.
func (v OptionValue) Float() float64 {
	switch s := v.state.(type) {
	case float64:
		return s
	case int:
		return float64(s)
	}
	return 0
}

// Int returns the integer value.
func (v OptionValue) Int() int {
	switch s := v.state.(type) {
	case int:
		return s
	case float64:
		return int(s)
	}
	return 0
}

// String returns the value as text, or "" when absent.
func (v OptionValue) String() string {
	switch s := v.state.(type) {
	case string:
		return s
	case bool:
		if s {
			return "true"
		}
	case float64:
		if s != 0 {
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	case int:
		if s != 0 {
			return strconv.Itoa(s)
		}
	}
	return ""
}

// ============================================================================
// Normalization
// ============================================================================

// NormalizeOption configures NormalizeOptions.
type NormalizeOption func(*normalizeConfig)

type normalizeConfig struct {
	packageOptions []map[string]any
	mandatory      []string
	index          int
}

// WithPackageOptions layers package-level options over the shipment
// options. Later layers win.
func WithPackageOptions(opts ...map[string]any) NormalizeOption {
	return func(c *normalizeConfig) { c.packageOptions = append(c.packageOptions, opts...) }
}

// Mandatory fails normalization when any of keys ends up absent.
func Mandatory(keys ...string) NormalizeOption {
	return func(c *normalizeConfig) { c.mandatory = append(c.mandatory, keys...) }
}

func atIndex(i int) NormalizeOption {
	return func(c *normalizeConfig) { c.index = i }
}

// OptionSet is the normalized view of a request's options. Lookups are
// total: an unknown or unset key yields an absent OptionValue.
type OptionSet struct {
	table       *OptionTable
	values      map[string]OptionValue
	unsupported []string
}

// NormalizeOptions coerces raw options against table. Keys the carrier does
// not know are kept aside and reported by Unsupported, unless mandatory.
// Every type mismatch is reported in a single *shipper.ValidationError.
func NormalizeOptions(raw map[string]any, table *OptionTable, opts ...NormalizeOption) (*OptionSet, error) {
	cfg := normalizeConfig{index: -1}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &OptionSet{table: table, values: make(map[string]OptionValue)}
	verr := shipper.NewValidationError(table.Carrier())
	s.apply(raw, cfg.index, verr)
	for _, layer := range cfg.packageOptions {
		s.apply(layer, cfg.index, verr)
	}
	for _, key := range cfg.mandatory {
		if _, ok := table.Spec(key); !ok {
			return nil, &shipper.UnsupportedMappingError{Carrier: table.Carrier(), Kind: string(KindOption), Key: key}
		}
		if !s.Get(key).Present() {
			verr.Add(cfg.index, "options."+key, "is required")
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s, nil
}

// Merge returns a new set with raw layered over s. s is left unchanged.
func (s *OptionSet) Merge(raw map[string]any) (*OptionSet, error) {
	return s.mergeAt(raw, -1)
}

func (s *OptionSet) mergeAt(raw map[string]any, index int) (*OptionSet, error) {
	out := &OptionSet{values: make(map[string]OptionValue)}
	if s != nil {
		out.table = s.table
		for k, v := range s.values {
			out.values[k] = v
		}
		out.unsupported = append(out.unsupported, s.unsupported...)
	}

	verr := shipper.NewValidationError(out.table.Carrier())
	out.apply(raw, index, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OptionSet) apply(raw map[string]any, index int, verr *shipper.ValidationError) {
	for _, key := range s.orderedKeys(raw) {
		spec, ok := s.table.Spec(key)
		if !ok {
			s.addUnsupported(key)
			continue
		}
		state, err := coerce(spec.Type, raw[key])
		if err != nil {
			verr.Add(index, "options."+key, err.Error())
			continue
		}
		s.values[spec.Key] = OptionValue{Key: spec.Key, Code: spec.Code, Type: spec.Type, state: state}
	}
}

// orderedKeys sorts keys so that aliases are applied before the specific
// keys they stand for.
func (s *OptionSet) orderedKeys(raw map[string]any) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	codes := s.table.Codes()
	sort.SliceStable(keys, func(i, j int) bool {
		return codes.IsAlias(keys[i]) && !codes.IsAlias(keys[j])
	})
	return keys
}

func (s *OptionSet) addUnsupported(key string) {
	for _, k := range s.unsupported {
		if k == key {
			return
		}
	}
	s.unsupported = append(s.unsupported, key)
}

// Get returns the option for key, resolving unified aliases.
func (s *OptionSet) Get(key string) OptionValue {
	if s == nil {
		return OptionValue{Key: key}
	}
	spec, ok := s.table.Spec(key)
	if !ok {
		return OptionValue{Key: key}
	}
	if v, ok := s.values[spec.Key]; ok {
		return v
	}
	return OptionValue{Key: spec.Key, Code: spec.Code, Type: spec.Type}
}

// Items returns the present carrier options in vocabulary order. Common
// options are left out.
func (s *OptionSet) Items() []OptionValue {
	if s == nil || s.table == nil {
		return nil
	}
	var items []OptionValue
	for _, key := range s.table.order {
		if v, ok := s.values[key]; ok && v.Present() {
			items = append(items, v)
		}
	}
	return items
}

// HasContent reports whether any option is present.
func (s *OptionSet) HasContent() bool {
	if s == nil {
		return false
	}
	for _, v := range s.values {
		if v.Present() {
			return true
		}
	}
	return false
}

// Unsupported returns the keys the carrier does not know, sorted.
func (s *OptionSet) Unsupported() []string {
	if s == nil {
		return nil
	}
	out := append([]string(nil), s.unsupported...)
	sort.Strings(out)
	return out
}

// Flagged reports whether raw[key] holds a true flag. It accepts the values
// a Flag option accepts; anything else reads as false.
func Flagged(raw map[string]any, key string) bool {
	v, err := coerce(TypeFlag, raw[key])
	if err != nil {
		return false
	}
	on, _ := v.(bool)
	return on
}

func coerce(t ValueType, raw any) (any, error) {
	switch t {
	case TypeFlag:
		switch v := raw.(type) {
		case nil:
			return false, nil
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("expected a boolean, got %q", v)
			}
			return b, nil
		}
	case TypeFloat:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		return f, nil
	case TypeInt:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("expected an integer, got %v", raw)
		}
		return int(f), nil
	case TypeString:
		switch v := raw.(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		case float64, float32, int, int64, int32:
			return fmt.Sprint(v), nil
		}
	}
	return nil, fmt.Errorf("expected a %s, got %T", t, raw)
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected a number, got %T", raw)
}
