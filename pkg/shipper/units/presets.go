package units

// Preset is a named package with fixed dimensions. Zero fields are not
// part of the preset and are left to the parcel.
type Preset struct {
	Length        float64
	Width         float64
	Height        float64
	DimensionUnit Unit
	Weight        float64
	WeightUnit    Unit
	PackagingType string
}

// Presets maps preset names to their dimensions. It is read-only once built.
type Presets map[string]Preset

// Lookup returns the preset named name.
func (p Presets) Lookup(name string) (Preset, bool) {
	if name == "" {
		return Preset{}, false
	}
	preset, ok := p[name]
	return preset, ok
}
