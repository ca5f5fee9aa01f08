package units_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

var testOptions = units.NewOptionTable("acme",
	units.Flag("acme_saturday_delivery", "SAT"),
	units.FloatOption("acme_cod", "COD"),
	units.IntOption("acme_hold_days", "HLD"),
	units.StringOption("acme_delivery_instructions", "INS"),
	units.Flag("acme_signature", "SIG"),
	units.OptionAlias(units.OptionSaturdayDelivery, "acme_saturday_delivery"),
	units.OptionAlias(units.OptionCashOnDelivery, "acme_cod"),
	units.OptionAlias(units.OptionSignatureConfirmation, "acme_signature"),
)

func TestNormalizeOptions_TypedAccess(t *testing.T) {
	set, err := units.NormalizeOptions(map[string]any{
		units.OptionSaturdayDelivery: true,
		"acme_cod":                   "25.5",
		"acme_hold_days":             float64(3),
		"acme_delivery_instructions": "Back door",
		units.OptionCurrency:         "CAD",
	}, testOptions)
	require.NoError(t, err)

	sat := set.Get(units.OptionSaturdayDelivery)
	assert.True(t, sat.Present())
	assert.True(t, sat.Bool())
	assert.Equal(t, "SAT", sat.Code)
	assert.Equal(t, "acme_saturday_delivery", sat.Key)

	assert.InDelta(t, 25.5, set.Get(units.OptionCashOnDelivery).Float(), 1e-9)
	assert.Equal(t, 3, set.Get("acme_hold_days").Int())
	assert.Equal(t, "Back door", set.Get("acme_delivery_instructions").String())
	assert.Equal(t, "CAD", set.Get(units.OptionCurrency).String())
	assert.True(t, set.HasContent())
}

func TestNormalizeOptions_LookupIsTotal(t *testing.T) {
	set, err := units.NormalizeOptions(nil, testOptions)
	require.NoError(t, err)

	for _, key := range []string{"acme_signature", units.OptionInsurance, "nonsense"} {
		v := set.Get(key)
		assert.False(t, v.Present(), key)
		assert.Nil(t, v.State(), key)
		assert.False(t, v.Bool(), key)
		assert.Zero(t, v.Float(), key)
	}
	assert.False(t, set.HasContent())

	var nilSet *units.OptionSet
	assert.False(t, nilSet.Get("acme_signature").Present())
	assert.Empty(t, nilSet.Items())
}

func TestNormalizeOptions_ItemsInVocabularyOrder(t *testing.T) {
	set, err := units.NormalizeOptions(map[string]any{
		units.OptionSignatureConfirmation: true,
		"acme_saturday_delivery":          true,
		"acme_cod":                        0.0,
		units.OptionShipmentDate:          "2026-10-20",
	}, testOptions)
	require.NoError(t, err)

	items := set.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "SAT", items[0].Code)
	assert.Equal(t, "SIG", items[1].Code)
}

func TestNormalizeOptions_UnsupportedDegrades(t *testing.T) {
	set, err := units.NormalizeOptions(map[string]any{
		units.OptionDangerousGood: true,
		"ups_carbon_neutral":      true,
	}, testOptions)
	require.NoError(t, err)
	assert.Equal(t, []string{units.OptionDangerousGood, "ups_carbon_neutral"}, set.Unsupported())
	assert.Empty(t, set.Items())
}

func TestNormalizeOptions_MandatoryUnsupported(t *testing.T) {
	_, err := units.NormalizeOptions(nil, testOptions, units.Mandatory(units.OptionDangerousGood))

	var mappingErr *shipper.UnsupportedMappingError
	require.True(t, errors.As(err, &mappingErr))
	assert.Equal(t, units.OptionDangerousGood, mappingErr.Key)
}

func TestNormalizeOptions_MandatoryMissing(t *testing.T) {
	_, err := units.NormalizeOptions(nil, testOptions, units.Mandatory(units.OptionShipmentDate))

	var verr *shipper.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "options.shipment_date", verr.Issues[0].Field)
}

func TestNormalizeOptions_BadTypesAllReported(t *testing.T) {
	_, err := units.NormalizeOptions(map[string]any{
		"acme_cod":       "lots",
		"acme_hold_days": 1.5,
		"acme_signature": "maybe",
	}, testOptions)

	var verr *shipper.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Issues, 3)
}

func TestNormalizeOptions_SpecificBeatsAliasInSameLayer(t *testing.T) {
	set, err := units.NormalizeOptions(map[string]any{
		units.OptionCashOnDelivery: 10.0,
		"acme_cod":                 20.0,
	}, testOptions)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, set.Get(units.OptionCashOnDelivery).Float(), 1e-9)
}

func TestNormalizeOptions_PackageOptionsWin(t *testing.T) {
	set, err := units.NormalizeOptions(
		map[string]any{units.OptionSaturdayDelivery: true, "acme_cod": 10.0},
		testOptions,
		units.WithPackageOptions(map[string]any{units.OptionSaturdayDelivery: false}),
	)
	require.NoError(t, err)
	assert.False(t, set.Get(units.OptionSaturdayDelivery).Present())
	assert.True(t, set.Get("acme_cod").Present())
}

func TestOptionSet_MergeLeavesReceiverUntouched(t *testing.T) {
	base, err := units.NormalizeOptions(map[string]any{units.OptionSaturdayDelivery: true}, testOptions)
	require.NoError(t, err)

	merged, err := base.Merge(map[string]any{units.OptionSaturdayDelivery: false, "acme_signature": true})
	require.NoError(t, err)

	assert.True(t, base.Get(units.OptionSaturdayDelivery).Bool())
	assert.False(t, base.Get("acme_signature").Present())
	assert.False(t, merged.Get(units.OptionSaturdayDelivery).Bool())
	assert.True(t, merged.Get("acme_signature").Bool())
}

func TestFlagged(t *testing.T) {
	raw := map[string]any{
		"bool":   true,
		"string": "true",
		"off":    "false",
		"junk":   "maybe",
		"number": 1,
	}

	assert.True(t, units.Flagged(raw, "bool"))
	assert.True(t, units.Flagged(raw, "string"))
	assert.False(t, units.Flagged(raw, "off"))
	assert.False(t, units.Flagged(raw, "junk"))
	assert.False(t, units.Flagged(raw, "number"))
	assert.False(t, units.Flagged(raw, "missing"))
}
