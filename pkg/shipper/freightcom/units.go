package freightcom

import (
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

// Freightcom service keys. Freightcom resells the services of partner
// carriers; service ids are "<carrier>.<service>".
const (
	ServiceFedexGround        = "freightcom_fedex_ground"
	ServiceFedexExpressSaver  = "freightcom_fedex_express_saver"
	ServiceFedexPriority      = "freightcom_fedex_priority_overnight"
	ServiceUPSStandard        = "freightcom_ups_standard"
	ServiceUPSExpressSaver    = "freightcom_ups_express_saver"
	ServicePurolatorGround    = "freightcom_purolator_ground"
	ServicePurolatorExpress   = "freightcom_purolator_express"
	ServiceCanparGround       = "freightcom_canpar_ground"
	ServiceCanadaPostExpedite = "freightcom_canadapost_expedited"
	ServiceLTLStandard        = "freightcom_ltl_standard"
)

// Freightcom option keys.
const (
	OptionSaturdayDelivery    = "freightcom_saturday_delivery"
	OptionSignatureRequired   = "freightcom_signature_required"
	OptionInsurance           = "freightcom_insurance"
	OptionDangerousGoods      = "freightcom_dangerous_goods"
	OptionTailgateDelivery    = "freightcom_tailgate_delivery"
	OptionTailgatePickup      = "freightcom_tailgate_pickup"
	OptionResidentialDelivery = "freightcom_residential_delivery"
	OptionInsideDelivery      = "freightcom_inside_delivery"
	OptionLimitedAccess       = "freightcom_limited_access"
	OptionStackable           = "freightcom_stackable"
	OptionNotifyRecipient     = "freightcom_notify_recipient"
)

// Services maps service keys to Freightcom service ids.
var Services = units.NewTable(carrierName, units.KindService,
	units.Value(ServiceFedexGround, "fedex.ground"),
	units.Value(ServiceFedexExpressSaver, "fedex.express-saver"),
	units.Value(ServiceFedexPriority, "fedex.priority-overnight"),
	units.Value(ServiceUPSStandard, "ups.standard"),
	units.Value(ServiceUPSExpressSaver, "ups.express-saver"),
	units.Value(ServicePurolatorGround, "purolator.ground"),
	units.Value(ServicePurolatorExpress, "purolator.express"),
	units.Value(ServiceCanparGround, "canpar.ground"),
	units.Value(ServiceCanadaPostExpedite, "canadapost.expedited"),
	units.Value(ServiceLTLStandard, "ltl.standard"),
)

// Packaging maps packaging keys to Freightcom packaging types.
var Packaging = units.NewTable(carrierName, units.KindPackaging,
	units.Value(units.PackagingEnvelope, "envelope"),
	units.Value(units.PackagingPak, "courier-pak"),
	units.Value(units.PackagingPallet, "pallet"),
	units.Value(units.PackagingSmallBox, "package"),
	units.Value(units.PackagingMediumBox, "package"),
	units.Value(units.PackagingYourPackaging, "package"),
	units.Alias(units.PackagingTube, units.PackagingYourPackaging),
)

// LabelTypes maps label formats to Freightcom label formats.
var LabelTypes = units.NewTable(carrierName, units.KindLabel,
	units.Value(string(shipper.LabelPDF), "pdf"),
	units.Value(string(shipper.LabelZPL), "zpl"),
	units.Value(string(shipper.LabelPNG), "png"),
)

// Options is the Freightcom option vocabulary. Codes are the keys of the
// details.options object.
var Options = units.NewOptionTable(carrierName,
	units.Flag(OptionSaturdayDelivery, "saturday_delivery"),
	units.Flag(OptionSignatureRequired, "signature_required"),
	units.FloatOption(OptionInsurance, "insurance"),
	units.Flag(OptionDangerousGoods, "dangerous_goods"),
	units.Flag(OptionTailgateDelivery, "tailgate_delivery"),
	units.Flag(OptionTailgatePickup, "tailgate_pickup"),
	units.Flag(OptionResidentialDelivery, "residential_delivery"),
	units.Flag(OptionInsideDelivery, "inside_delivery"),
	units.Flag(OptionLimitedAccess, "limited_access"),
	units.Flag(OptionStackable, "stackable"),
	units.Flag(OptionNotifyRecipient, "notify_recipient"),

	units.OptionAlias(units.OptionSaturdayDelivery, OptionSaturdayDelivery),
	units.OptionAlias(units.OptionSignatureConfirmation, OptionSignatureRequired),
	units.OptionAlias(units.OptionInsurance, OptionInsurance),
	units.OptionAlias(units.OptionDangerousGood, OptionDangerousGoods),
	units.OptionAlias(units.OptionEmailNotification, OptionNotifyRecipient),
)

// Presets are the standard Freightcom freight units.
var Presets = units.Presets{
	"freightcom_pallet": {
		Length: 48, Width: 40, Height: 48, DimensionUnit: units.IN,
		Weight: 500, WeightUnit: units.LB, PackagingType: units.PackagingPallet,
	},
	"freightcom_courier_pak": {
		Length: 12, Width: 15, Height: 1, DimensionUnit: units.IN,
		Weight: 1, WeightUnit: units.LB, PackagingType: units.PackagingPak,
	},
}

// Vocabulary is the Freightcom entry of the carrier catalog. Every
// dimension is required since freight is billed on cubed weight.
var Vocabulary = units.Vocabulary{
	Carrier:       carrierName,
	Services:      Services,
	Packaging:     Packaging,
	LabelTypes:    LabelTypes,
	Options:       Options,
	Presets:       Presets,
	DimensionUnit: units.IN,
	WeightUnit:    units.LB,
	Required:      []units.Field{units.FieldWeight, units.FieldHeight, units.FieldWidth, units.FieldLength},
}

var shipmentStatuses = map[string]shipper.TrackingStatus{
	"pending":          shipper.StatusPending,
	"processing":       shipper.StatusPending,
	"booked":           shipper.StatusPending,
	"confirmed":        shipper.StatusPending,
	"picked_up":        shipper.StatusPickedUp,
	"in_transit":       shipper.StatusInTransit,
	"out_for_delivery": shipper.StatusOutForDelivery,
	"delivered":        shipper.StatusDelivered,
	"cancelled":        shipper.StatusCancelled,
	"exception":        shipper.StatusException,
	"failed":           shipper.StatusException,
}

func mapStatus(status string) shipper.TrackingStatus {
	if s, ok := shipmentStatuses[status]; ok {
		return s
	}
	return shipper.StatusUnknown
}
