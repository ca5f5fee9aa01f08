// Package units maps canonical shipping vocabulary onto carrier codes and
// normalizes parcels and options into carrier-ready form.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Unit is a length or weight unit.
type Unit string

const (
	CM Unit = "CM"
	IN Unit = "IN"
	M  Unit = "M"
	MM Unit = "MM"

	KG Unit = "KG"
	LB Unit = "LB"
	OZ Unit = "OZ"
	G  Unit = "G"
)

// Dimension tells length units from weight units.
type Dimension int

const (
	DimensionUnknown Dimension = iota
	DimensionLength
	DimensionWeight
)

// Conversion ratios to the base unit of each dimension (CM and KG).
var (
	lengthRatios = map[Unit]float64{CM: 1, IN: 2.54, M: 100, MM: 0.1}
	weightRatios = map[Unit]float64{KG: 1, LB: 0.45359237, OZ: 0.028349523125, G: 0.001}
)

var unitAliases = map[string]Unit{
	"CM": CM, "CENTIMETER": CM, "CENTIMETERS": CM,
	"IN": IN, "INCH": IN, "INCHES": IN,
	"M": M, "METER": M, "METERS": M,
	"MM": MM, "MILLIMETER": MM, "MILLIMETERS": MM,
	"KG": KG, "KGS": KG, "KILOGRAM": KG, "KILOGRAMS": KG,
	"LB": LB, "LBS": LB, "POUND": LB, "POUNDS": LB,
	"OZ": OZ, "OUNCE": OZ, "OUNCES": OZ,
	"G": G, "GRAM": G, "GRAMS": G,
}

// ErrIncompatibleUnits is returned when converting between dimensions.
var ErrIncompatibleUnits = errors.New("incompatible units")

// ParseUnit parses a unit name case-insensitively.
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToUpper(strings.TrimSpace(s))]
	return u, ok
}

// Dimension returns the dimension the unit measures.
func (u Unit) Dimension() Dimension {
	if _, ok := lengthRatios[u]; ok {
		return DimensionLength
	}
	if _, ok := weightRatios[u]; ok {
		return DimensionWeight
	}
	return DimensionUnknown
}

func (u Unit) ratio() float64 {
	if r, ok := lengthRatios[u]; ok {
		return r
	}
	return weightRatios[u]
}

// Measurement is a value in a unit. A zero Value means not provided.
type Measurement struct {
	Value float64
	Unit  Unit
}

// Measure builds a Measurement.
func Measure(value float64, unit Unit) Measurement {
	return Measurement{Value: value, Unit: unit}
}

// IsZero reports whether the measurement was not provided.
func (m Measurement) IsZero() bool {
	return m.Value == 0
}

// To converts m to unit u. Converting an unset measurement yields an unset
// measurement in u.
func (m Measurement) To(u Unit) (Measurement, error) {
	if m.Unit == u {
		return m, nil
	}
	if m.Unit.Dimension() == DimensionUnknown || m.Unit.Dimension() != u.Dimension() {
		return Measurement{}, fmt.Errorf("%w: %s to %s", ErrIncompatibleUnits, m.Unit, u)
	}
	if m.IsZero() {
		return Measurement{Unit: u}, nil
	}
	return Measurement{Value: m.Value * m.Unit.ratio() / u.ratio(), Unit: u}, nil
}

// In returns the value of m in unit u, or 0 when m is unset or not
// convertible to u.
func (m Measurement) In(u Unit) float64 {
	c, err := m.To(u)
	if err != nil {
		return 0
	}
	return c.Value
}

// Ceil returns the value of m in unit u rounded up to a whole number.
func (m Measurement) Ceil(u Unit) int {
	return int(math.Ceil(round(m.In(u), 6)))
}

// Round returns the value of m in unit u rounded to the given decimals.
func (m Measurement) Round(u Unit, decimals int) float64 {
	return round(m.In(u), decimals)
}

func (m Measurement) String() string {
	return fmt.Sprintf("%g %s", m.Value, m.Unit)
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
