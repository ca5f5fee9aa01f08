package canadapost

import (
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

// Canada Post service keys.
const (
	ServiceRegularParcel              = "canadapost_regular_parcel"
	ServiceExpeditedParcel            = "canadapost_expedited_parcel"
	ServiceXpresspost                 = "canadapost_xpresspost"
	ServicePriority                   = "canadapost_priority"
	ServiceLibraryMaterials           = "canadapost_library_materials"
	ServiceExpeditedParcelUSA         = "canadapost_expedited_parcel_usa"
	ServiceSmallPacketUSAAir          = "canadapost_small_packet_usa_air"
	ServiceTrackedPacketUSA           = "canadapost_tracked_packet_usa"
	ServiceXpresspostUSA              = "canadapost_xpresspost_usa"
	ServiceXpresspostInternational    = "canadapost_xpresspost_international"
	ServiceInternationalParcelAir     = "canadapost_international_parcel_air"
	ServiceInternationalParcelSurface = "canadapost_international_parcel_surface"
	ServiceTrackedPacketInternational = "canadapost_tracked_packet_international"
)

// Canada Post option keys.
const (
	OptionSignature             = "canadapost_signature"
	OptionCoverage              = "canadapost_coverage"
	OptionCollectOnDelivery     = "canadapost_collect_on_delivery"
	OptionProofOfAge18          = "canadapost_proof_of_age_required_18"
	OptionProofOfAge19          = "canadapost_proof_of_age_required_19"
	OptionCardForPickup         = "canadapost_card_for_pickup"
	OptionDoNotSafeDrop         = "canadapost_do_not_safe_drop"
	OptionLeaveAtDoor           = "canadapost_leave_at_door"
	OptionDeliverToPostOffice   = "canadapost_deliver_to_post_office"
	OptionReturnAtSenderExpense = "canadapost_return_at_senders_expense"
	OptionAbandon               = "canadapost_abandon"
)

// Services maps service keys to Canada Post service codes.
var Services = units.NewTable(carrierName, units.KindService,
	units.Value(ServiceRegularParcel, "DOM.RP"),
	units.Value(ServiceExpeditedParcel, "DOM.EP"),
	units.Value(ServiceXpresspost, "DOM.XP"),
	units.Value(ServicePriority, "DOM.PC"),
	units.Value(ServiceLibraryMaterials, "DOM.LIB"),
	units.Value(ServiceExpeditedParcelUSA, "USA.EP"),
	units.Value(ServiceSmallPacketUSAAir, "USA.SP.AIR"),
	units.Value(ServiceTrackedPacketUSA, "USA.TP"),
	units.Value(ServiceXpresspostUSA, "USA.XP"),
	units.Value(ServiceXpresspostInternational, "INT.XP"),
	units.Value(ServiceInternationalParcelAir, "INT.IP.AIR"),
	units.Value(ServiceInternationalParcelSurface, "INT.IP.SURF"),
	units.Value(ServiceTrackedPacketInternational, "INT.TP"),
)

// Packaging maps packaging keys. Canada Post has no packaging codes of its
// own; the table only records which unified types are accepted.
var Packaging = units.NewTable(carrierName, units.KindPackaging,
	units.Value(units.PackagingEnvelope, "envelope"),
	units.Value(units.PackagingPak, "pak"),
	units.Value(units.PackagingTube, "tube"),
	units.Value(units.PackagingSmallBox, "parcel"),
	units.Value(units.PackagingMediumBox, "parcel"),
	units.Value(units.PackagingYourPackaging, "parcel"),
)

// LabelTypes maps label formats to print-preference encodings.
var LabelTypes = units.NewTable(carrierName, units.KindLabel,
	units.Value(string(shipper.LabelPDF), "PDF"),
	units.Value(string(shipper.LabelZPL), "ZPL"),
)

// Options is the Canada Post option vocabulary.
var Options = units.NewOptionTable(carrierName,
	units.Flag(OptionSignature, "SO"),
	units.FloatOption(OptionCoverage, "COV"),
	units.FloatOption(OptionCollectOnDelivery, "COD"),
	units.Flag(OptionProofOfAge18, "PA18"),
	units.Flag(OptionProofOfAge19, "PA19"),
	units.Flag(OptionCardForPickup, "HFP"),
	units.Flag(OptionDoNotSafeDrop, "DNS"),
	units.Flag(OptionLeaveAtDoor, "LAD"),
	units.Flag(OptionDeliverToPostOffice, "D2PO"),
	units.Flag(OptionReturnAtSenderExpense, "RASE"),
	units.Flag(OptionAbandon, "ABAN"),

	units.OptionAlias(units.OptionSignatureConfirmation, OptionSignature),
	units.OptionAlias(units.OptionInsurance, OptionCoverage),
	units.OptionAlias(units.OptionCashOnDelivery, OptionCollectOnDelivery),
	units.OptionAlias(units.OptionHoldAtLocation, OptionCardForPickup),
)

// Presets are the Canada Post branded envelopes and boxes.
var Presets = units.Presets{
	"canadapost_mountain_bike_box": {Length: 170, Width: 30, Height: 100, DimensionUnit: units.CM, PackagingType: units.PackagingYourPackaging},
	"canadapost_lunch_box":         {Length: 17, Width: 10, Height: 25, DimensionUnit: units.CM, PackagingType: units.PackagingSmallBox},
	"canadapost_xpresspost_certified_envelope": {
		Length: 26, Width: 15.9, Height: 1.5, DimensionUnit: units.CM,
		Weight: 0.5, WeightUnit: units.KG, PackagingType: units.PackagingEnvelope,
	},
	"canadapost_xpresspost_national_large_envelope": {
		Length: 40, Width: 29.2, Height: 1.5, DimensionUnit: units.CM,
		Weight: 1.36, WeightUnit: units.KG, PackagingType: units.PackagingEnvelope,
	},
}

// Vocabulary is the Canada Post entry of the carrier catalog.
var Vocabulary = units.Vocabulary{
	Carrier:       carrierName,
	Services:      Services,
	Packaging:     Packaging,
	LabelTypes:    LabelTypes,
	Options:       Options,
	Presets:       Presets,
	DimensionUnit: units.CM,
	WeightUnit:    units.KG,
	Required:      []units.Field{units.FieldWeight},
}
