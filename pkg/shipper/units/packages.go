package units

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// Field names a parcel measurement.
type Field string

const (
	FieldWeight Field = "weight"
	FieldLength Field = "length"
	FieldWidth  Field = "width"
	FieldHeight Field = "height"
)

// Default units of a raw parcel that states none.
const (
	DefaultDimensionUnit = CM
	DefaultWeightUnit    = KG
)

// PackageSpec describes how a carrier wants its parcels.
type PackageSpec struct {
	Carrier         string
	Presets         Presets
	Required        []Field
	DimensionUnit   Unit
	WeightUnit      Unit
	Options         *OptionTable
	ShipmentOptions *OptionSet
}

// Package is a normalized parcel expressed in the carrier's units.
type Package struct {
	Index         int
	Parcel        shipper.Parcel
	Weight        Measurement
	Length        Measurement
	Width         Measurement
	Height        Measurement
	PackagingType string
	Preset        string
	IsDocument    bool
	Options       *OptionSet
}

// Description returns the parcel description, falling back to its content.
func (p Package) Description() string {
	if p.Parcel.Description != "" {
		return p.Parcel.Description
	}
	return p.Parcel.Content
}

// HasDimensions reports whether every dimension is known.
func (p Package) HasDimensions() bool {
	return !p.Length.IsZero() && !p.Width.IsZero() && !p.Height.IsZero()
}

func (p Package) measurement(f Field) Measurement {
	switch f {
	case FieldWeight:
		return p.Weight
	case FieldLength:
		return p.Length
	case FieldWidth:
		return p.Width
	case FieldHeight:
		return p.Height
	}
	return Measurement{}
}

// PackageCollection is an ordered, immutable list of normalized packages.
type PackageCollection struct {
	packages      []Package
	dimensionUnit Unit
	weightUnit    Unit
}

// NormalizePackages backfills parcels from presets, converts them to the
// carrier's units and validates required fields. Every failing parcel is
// reported in a single *shipper.ValidationError.
func NormalizePackages(parcels []shipper.Parcel, spec PackageSpec) (*PackageCollection, error) {
	verr := shipper.NewValidationError(spec.Carrier)
	if len(parcels) == 0 {
		verr.Add(-1, "parcels", "at least one parcel is required")
		return nil, verr
	}

	c := &PackageCollection{
		packages:      make([]Package, 0, len(parcels)),
		dimensionUnit: spec.DimensionUnit,
		weightUnit:    spec.WeightUnit,
	}
	for i, parcel := range parcels {
		pkg, ok := normalizeParcel(i, parcel, spec, verr)
		if ok {
			c.packages = append(c.packages, pkg)
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return c, nil
}

func normalizeParcel(i int, parcel shipper.Parcel, spec PackageSpec, verr *shipper.ValidationError) (Package, bool) {
	issues := len(verr.Issues)

	dimUnit, weightUnit := DefaultDimensionUnit, DefaultWeightUnit
	preset, hasPreset := spec.Presets.Lookup(parcel.PackagePreset)
	if parcel.PackagePreset != "" && !hasPreset {
		verr.Add(i, "package_preset", "unknown preset "+parcel.PackagePreset)
	}
	if hasPreset {
		if preset.DimensionUnit != "" {
			dimUnit = preset.DimensionUnit
		}
		if preset.WeightUnit != "" {
			weightUnit = preset.WeightUnit
		}
	}
	if parcel.DimensionUnit != "" {
		u, ok := ParseUnit(parcel.DimensionUnit)
		if !ok || u.Dimension() != DimensionLength {
			verr.Add(i, "dimension_unit", "unknown unit "+parcel.DimensionUnit)
		}
		dimUnit = u
	}
	if parcel.WeightUnit != "" {
		u, ok := ParseUnit(parcel.WeightUnit)
		if !ok || u.Dimension() != DimensionWeight {
			verr.Add(i, "weight_unit", "unknown unit "+parcel.WeightUnit)
		}
		weightUnit = u
	}
	if len(verr.Issues) > issues {
		return Package{}, false
	}

	pkg := Package{
		Index:         i,
		Parcel:        parcel,
		Length:        pick(parcel.Length, dimUnit, preset.Length, preset.DimensionUnit),
		Width:         pick(parcel.Width, dimUnit, preset.Width, preset.DimensionUnit),
		Height:        pick(parcel.Height, dimUnit, preset.Height, preset.DimensionUnit),
		Weight:        pick(parcel.Weight, weightUnit, preset.Weight, preset.WeightUnit),
		PackagingType: parcel.PackagingType,
		IsDocument:    parcel.IsDocument,
	}
	if hasPreset {
		pkg.Preset = parcel.PackagePreset
		if pkg.PackagingType == "" {
			pkg.PackagingType = preset.PackagingType
		}
	}

	pkg.Length = convert(pkg.Length, spec.DimensionUnit)
	pkg.Width = convert(pkg.Width, spec.DimensionUnit)
	pkg.Height = convert(pkg.Height, spec.DimensionUnit)
	pkg.Weight = convert(pkg.Weight, spec.WeightUnit)

	for _, f := range []Field{FieldWeight, FieldLength, FieldWidth, FieldHeight} {
		m := pkg.measurement(f)
		if m.Value < 0 {
			verr.Add(i, string(f), "must not be negative")
		}
	}
	for _, f := range spec.Required {
		if pkg.measurement(f).IsZero() {
			verr.Add(i, string(f), "is required")
		}
	}

	var err error
	if spec.ShipmentOptions != nil {
		pkg.Options, err = spec.ShipmentOptions.mergeAt(parcel.Options, i)
	} else {
		pkg.Options, err = NormalizeOptions(parcel.Options, spec.Options, atIndex(i))
	}
	var optErr *shipper.ValidationError
	if errors.As(err, &optErr) {
		verr.Issues = append(verr.Issues, optErr.Issues...)
	}

	return pkg, len(verr.Issues) == issues
}

// pick returns the parcel's own value when set, else the preset's.
func pick(value float64, unit Unit, presetValue float64, presetUnit Unit) Measurement {
	if value != 0 || presetValue == 0 {
		return Measure(value, unit)
	}
	if presetUnit == "" {
		presetUnit = unit
	}
	return Measure(presetValue, presetUnit)
}

func convert(m Measurement, u Unit) Measurement {
	if u == "" {
		return m
	}
	if c, err := m.To(u); err == nil {
		return c
	}
	return m
}

// Len returns the number of packages.
func (c *PackageCollection) Len() int {
	return len(c.packages)
}

// At returns the i-th package.
func (c *PackageCollection) At(i int) Package {
	return c.packages[i]
}

// All returns a copy of the packages in input order.
func (c *PackageCollection) All() []Package {
	return append([]Package(nil), c.packages...)
}

// Single returns the first package.
func (c *PackageCollection) Single() Package {
	if len(c.packages) == 0 {
		return Package{}
	}
	return c.packages[0]
}

// DimensionUnit returns the unit every dimension is expressed in.
func (c *PackageCollection) DimensionUnit() Unit {
	return c.dimensionUnit
}

// WeightUnit returns the unit every weight is expressed in.
func (c *PackageCollection) WeightUnit() Unit {
	return c.weightUnit
}

// Weight returns the total weight in the carrier's weight unit.
func (c *PackageCollection) Weight() Measurement {
	unit := c.weightUnit
	if unit == "" {
		unit = DefaultWeightUnit
	}
	total := Measure(0, unit)
	for _, p := range c.packages {
		total.Value += p.Weight.In(unit)
	}
	return total
}

// IsDocument reports whether every package is a document.
func (c *PackageCollection) IsDocument() bool {
	if len(c.packages) == 0 {
		return false
	}
	for _, p := range c.packages {
		if !p.IsDocument {
			return false
		}
	}
	return true
}

// Description joins the distinct package descriptions.
func (c *PackageCollection) Description() string {
	var parts []string
	seen := make(map[string]bool)
	for _, p := range c.packages {
		d := p.Description()
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		parts = append(parts, d)
	}
	return strings.Join(parts, ", ")
}

// PackageType returns the packaging type shared by every package, or "".
func (c *PackageCollection) PackageType() string {
	if len(c.packages) == 0 {
		return ""
	}
	t := c.packages[0].PackagingType
	for _, p := range c.packages[1:] {
		if p.PackagingType != t {
			return ""
		}
	}
	return t
}

// CommonOptions returns the raw options every package carries with the
// same value.
func (c *PackageCollection) CommonOptions() map[string]any {
	if len(c.packages) == 0 {
		return nil
	}
	common := make(map[string]any)
	keys := make([]string, 0, len(c.packages[0].Parcel.Options))
	for k := range c.packages[0].Parcel.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := c.packages[0].Parcel.Options[k]
		shared := true
		for _, p := range c.packages[1:] {
			other, ok := p.Parcel.Options[k]
			if !ok || !reflect.DeepEqual(v, other) {
				shared = false
				break
			}
		}
		if shared {
			common[k] = v
		}
	}
	return common
}
