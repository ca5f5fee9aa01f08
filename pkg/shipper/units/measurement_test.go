package units_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

func TestMeasurement_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		from  units.Unit
		to    units.Unit
	}{
		{"inches to centimeters", 10, units.IN, units.CM},
		{"centimeters to inches", 33.7, units.CM, units.IN},
		{"meters to millimeters", 1.25, units.M, units.MM},
		{"pounds to kilograms", 7, units.LB, units.KG},
		{"ounces to pounds", 13.5, units.OZ, units.LB},
		{"grams to ounces", 850, units.G, units.OZ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			there, err := units.Measure(tt.value, tt.from).To(tt.to)
			require.NoError(t, err)
			back, err := there.To(tt.from)
			require.NoError(t, err)
			assert.InDelta(t, tt.value, back.Value, 1e-9)
			assert.Equal(t, tt.from, back.Unit)
		})
	}
}

func TestMeasurement_KnownRatios(t *testing.T) {
	assert.InDelta(t, 25.4, units.Measure(10, units.IN).In(units.CM), 1e-9)
	assert.InDelta(t, 2.26796185, units.Measure(5, units.LB).In(units.KG), 1e-9)
	assert.InDelta(t, 16, units.Measure(1, units.LB).In(units.OZ), 1e-9)
}

func TestMeasurement_Incompatible(t *testing.T) {
	_, err := units.Measure(1, units.KG).To(units.CM)
	assert.ErrorIs(t, err, units.ErrIncompatibleUnits)
	assert.Zero(t, units.Measure(1, units.KG).In(units.CM))
}

func TestMeasurement_Ceil(t *testing.T) {
	assert.Equal(t, 10, units.Measure(25.4, units.CM).Ceil(units.IN))
	assert.Equal(t, 11, units.Measure(10.01, units.IN).Ceil(units.IN))
	assert.Equal(t, 4, units.Measure(3.2, units.LB).Ceil(units.LB))
}

func TestMeasurement_Unset(t *testing.T) {
	m, err := units.Measurement{Unit: units.IN}.To(units.CM)
	require.NoError(t, err)
	assert.True(t, m.IsZero())
	assert.Equal(t, units.CM, m.Unit)
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]units.Unit{"lbs": units.LB, "KG": units.KG, " in ": units.IN, "cm": units.CM, "Ounces": units.OZ} {
		got, ok := units.ParseUnit(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := units.ParseUnit("furlong")
	assert.False(t, ok)
}
