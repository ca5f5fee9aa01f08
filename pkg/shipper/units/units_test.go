package units_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

var testPackaging = units.NewTable("acme", units.KindPackaging,
	units.Alias(units.PackagingSmallBox, "acme_small_express_box"),
	units.Value("acme_small_express_box", "2a"),
	units.Value("acme_medium_express_box", "2b"),
	units.Value("acme_tube", "03"),
	units.Alias(units.PackagingMediumBox, "acme_medium_express_box"),
	units.Alias(units.PackagingTube, "acme_tube"),
	units.Value("acme_box", "02"),
	units.Alias(units.PackagingYourPackaging, "acme_box"),
)

func TestTable_ResolveThenMatchRoundTrip(t *testing.T) {
	for _, key := range testPackaging.Keys() {
		if testPackaging.IsAlias(key) {
			continue
		}
		value, err := testPackaging.Resolve(key)
		require.NoError(t, err, key)
		assert.Equal(t, key, testPackaging.Match(value), key)
	}
}

func TestTable_AliasResolvesToTargetValue(t *testing.T) {
	value, err := testPackaging.Resolve(units.PackagingSmallBox)
	require.NoError(t, err)
	assert.Equal(t, "2a", value)
	assert.True(t, testPackaging.IsAlias(units.PackagingSmallBox))
}

func TestTable_MatchPrefersSpecificKey(t *testing.T) {
	// small_box is declared before acme_small_express_box
	assert.Equal(t, "acme_small_express_box", testPackaging.Match("2a"))
}

func TestTable_SpecificWinsOverAlias(t *testing.T) {
	table := units.NewTable("acme", units.KindService,
		units.Alias("express", "acme_express"),
		units.Value("acme_express", "EXP"),
		units.Value("express", "XPR"),
	)

	value, err := table.Resolve("express")
	require.NoError(t, err)
	assert.Equal(t, "XPR", value)
	assert.False(t, table.IsAlias("express"))
}

func TestTable_UnknownKey(t *testing.T) {
	_, err := testPackaging.Resolve("pallet")

	var mappingErr *shipper.UnsupportedMappingError
	require.True(t, errors.As(err, &mappingErr))
	assert.Equal(t, "acme", mappingErr.Carrier)
	assert.Equal(t, "packaging", mappingErr.Kind)
	assert.Equal(t, "pallet", mappingErr.Key)
	assert.ErrorIs(t, err, shipper.ErrUnsupported)

	assert.Equal(t, "pallet", testPackaging.ValueOrKey("pallet"))
	assert.Equal(t, "ZZ", testPackaging.Match("ZZ"))
}

func TestTable_First(t *testing.T) {
	key, value, ok := testPackaging.First([]string{"pallet", units.PackagingTube, "acme_box"})
	require.True(t, ok)
	assert.Equal(t, units.PackagingTube, key)
	assert.Equal(t, "03", value)

	_, _, ok = testPackaging.First([]string{"pallet"})
	assert.False(t, ok)
}

func TestTable_NilIsEmpty(t *testing.T) {
	var table *units.Table
	assert.False(t, table.Has("x"))
	assert.Equal(t, "x", table.Match("x"))
	_, err := table.Resolve("x")
	assert.ErrorIs(t, err, shipper.ErrUnsupported)
}

func TestTable_PanicsOnDuplicateKey(t *testing.T) {
	assert.Panics(t, func() {
		units.NewTable("acme", units.KindService, units.Value("a", "1"), units.Value("a", "2"))
	})
	assert.Panics(t, func() {
		units.NewTable("acme", units.KindService, units.Alias("a", "missing"))
	})
}

func TestCatalog(t *testing.T) {
	catalog := units.NewCatalog(units.Vocabulary{Carrier: "acme", Packaging: testPackaging})

	value, err := catalog.Resolve("acme", units.KindPackaging, units.PackagingMediumBox)
	require.NoError(t, err)
	assert.Equal(t, "2b", value)
	assert.Equal(t, "acme_medium_express_box", catalog.Match("acme", units.KindPackaging, "2b"))

	_, err = catalog.Resolve("acme", units.KindService, "ground")
	assert.ErrorIs(t, err, shipper.ErrUnsupported)

	_, err = catalog.Resolve("ups", units.KindService, "ground")
	assert.ErrorIs(t, err, shipper.ErrCarrierNotFound)

	assert.Equal(t, []string{"acme"}, catalog.Carriers())
	assert.Panics(t, func() {
		units.NewCatalog(units.Vocabulary{Carrier: "acme"}, units.Vocabulary{Carrier: "acme"})
	})
}
