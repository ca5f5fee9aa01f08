package units

import (
	"fmt"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// Vocabulary is everything a carrier declares about its codes and units.
type Vocabulary struct {
	Carrier       string
	Services      *Table
	Packaging     *Table
	LabelTypes    *Table
	Options       *OptionTable
	Presets       Presets
	DimensionUnit Unit
	WeightUnit    Unit
	Required      []Field
}

// Table returns the table for kind.
func (v Vocabulary) Table(kind Kind) *Table {
	switch kind {
	case KindService:
		return v.Services
	case KindPackaging:
		return v.Packaging
	case KindLabel:
		return v.LabelTypes
	case KindOption:
		return v.Options.Codes()
	}
	return nil
}

// PackageSpec returns the parcel rules of the vocabulary, layering parcel
// options over shipment.
func (v Vocabulary) PackageSpec(shipment *OptionSet) PackageSpec {
	return PackageSpec{
		Carrier:         v.Carrier,
		Presets:         v.Presets,
		Required:        v.Required,
		DimensionUnit:   v.DimensionUnit,
		WeightUnit:      v.WeightUnit,
		Options:         v.Options,
		ShipmentOptions: shipment,
	}
}

// Catalog indexes vocabularies by carrier. It is read-only once built and
// safe for concurrent use.
type Catalog struct {
	vocabularies map[string]Vocabulary
	carriers     []string
}

// NewCatalog builds a Catalog. It panics when a carrier is declared twice.
func NewCatalog(vocabularies ...Vocabulary) *Catalog {
	c := &Catalog{vocabularies: make(map[string]Vocabulary, len(vocabularies))}
	for _, v := range vocabularies {
		if _, dup := c.vocabularies[v.Carrier]; dup {
			panic(fmt.Sprintf("units: carrier %q declared twice", v.Carrier))
		}
		c.vocabularies[v.Carrier] = v
		c.carriers = append(c.carriers, v.Carrier)
	}
	return c
}

// Lookup returns the vocabulary of carrier.
func (c *Catalog) Lookup(carrier string) (Vocabulary, bool) {
	v, ok := c.vocabularies[carrier]
	return v, ok
}

// Carriers returns the carriers in declaration order.
func (c *Catalog) Carriers() []string {
	return append([]string(nil), c.carriers...)
}

// Resolve maps a canonical key of kind to carrier's code.
func (c *Catalog) Resolve(carrier string, kind Kind, key string) (string, error) {
	v, ok := c.vocabularies[carrier]
	if !ok {
		return "", fmt.Errorf("%w: %s", shipper.ErrCarrierNotFound, carrier)
	}
	table := v.Table(kind)
	if table == nil {
		return "", &shipper.UnsupportedMappingError{Carrier: carrier, Kind: string(kind), Key: key}
	}
	return table.Resolve(key)
}

// Match maps a carrier code of kind back to its canonical key.
func (c *Catalog) Match(carrier string, kind Kind, value string) string {
	v, ok := c.vocabularies[carrier]
	if !ok {
		return value
	}
	return v.Table(kind).Match(value)
}
