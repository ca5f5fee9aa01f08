package purolator

import (
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

// Purolator service keys.
const (
	ServiceExpress              = "purolator_express"
	ServiceExpress9AM           = "purolator_express_9_am"
	ServiceExpress1030AM        = "purolator_express_10_30_am"
	ServiceExpress12PM          = "purolator_express_12_pm"
	ServiceExpressEvening       = "purolator_express_evening"
	ServiceGround               = "purolator_ground"
	ServiceGround9AM            = "purolator_ground_9_am"
	ServiceGround1030AM         = "purolator_ground_10_30_am"
	ServiceExpressUS            = "purolator_express_us"
	ServiceGroundUS             = "purolator_ground_us"
	ServiceExpressInternational = "purolator_express_international"
)

// Purolator option keys.
const (
	OptionDangerousGoods           = "purolator_dangerous_goods"
	OptionSaturdayService          = "purolator_saturday_service"
	OptionOriginSignatureNotNeeded = "purolator_origin_signature_not_required"
	OptionAdultSignature           = "purolator_adult_signature_required"
	OptionResidentialSignature     = "purolator_residential_signature_domestic"
	OptionHoldForPickup            = "purolator_hold_for_pickup"
	OptionSpecialHandling          = "purolator_special_handling"
	OptionDeclaredValue            = "purolator_declared_value"
	OptionExpressCheque            = "purolator_express_cheque"
)

// Services maps service keys to Purolator service ids.
var Services = units.NewTable(carrierName, units.KindService,
	units.Value(ServiceExpress, "PurolatorExpress"),
	units.Value(ServiceExpress9AM, "PurolatorExpress9AM"),
	units.Value(ServiceExpress1030AM, "PurolatorExpress10:30AM"),
	units.Value(ServiceExpress12PM, "PurolatorExpress12PM"),
	units.Value(ServiceExpressEvening, "PurolatorExpressEvening"),
	units.Value(ServiceGround, "PurolatorGround"),
	units.Value(ServiceGround9AM, "PurolatorGround9AM"),
	units.Value(ServiceGround1030AM, "PurolatorGround10:30AM"),
	units.Value(ServiceExpressUS, "PurolatorExpressU.S."),
	units.Value(ServiceGroundUS, "PurolatorGroundU.S."),
	units.Value(ServiceExpressInternational, "PurolatorExpressInternational"),
)

// Packaging maps packaging keys to Purolator packaging types.
var Packaging = units.NewTable(carrierName, units.KindPackaging,
	units.Value(units.PackagingEnvelope, "PurolatorExpressEnvelope"),
	units.Value(units.PackagingPak, "PurolatorExpressPack"),
	units.Value(units.PackagingSmallBox, "PurolatorExpressBox"),
	units.Value(units.PackagingMediumBox, "CustomerPackaging"),
	units.Value(units.PackagingYourPackaging, "CustomerPackaging"),
	units.Alias(units.PackagingTube, units.PackagingYourPackaging),
)

// LabelTypes maps label formats to Purolator printer types.
var LabelTypes = units.NewTable(carrierName, units.KindLabel,
	units.Value(string(shipper.LabelPDF), "Regular"),
	units.Value(string(shipper.LabelZPL), "Thermal"),
)

// Options is the Purolator option vocabulary.
var Options = units.NewOptionTable(carrierName,
	units.Flag(OptionDangerousGoods, "DangerousGoods"),
	units.Flag(OptionSaturdayService, "SaturdayDelivery"),
	units.Flag(OptionOriginSignatureNotNeeded, "OriginSignatureNotRequired"),
	units.Flag(OptionAdultSignature, "AdultSignatureRequired"),
	units.Flag(OptionResidentialSignature, "ResidentialSignatureDomestic"),
	units.Flag(OptionHoldForPickup, "HoldForPickup"),
	units.Flag(OptionSpecialHandling, "SpecialHandling"),
	units.FloatOption(OptionDeclaredValue, "DeclaredValue"),
	units.FloatOption(OptionExpressCheque, "ExpressCheque"),

	units.OptionAlias(units.OptionDangerousGood, OptionDangerousGoods),
	units.OptionAlias(units.OptionSaturdayDelivery, OptionSaturdayService),
	units.OptionAlias(units.OptionSignatureConfirmation, OptionResidentialSignature),
	units.OptionAlias(units.OptionHoldAtLocation, OptionHoldForPickup),
	units.OptionAlias(units.OptionInsurance, OptionDeclaredValue),
	units.OptionAlias(units.OptionCashOnDelivery, OptionExpressCheque),
)

// Presets are the Purolator branded envelopes, packs and boxes.
var Presets = units.Presets{
	"purolator_express_envelope": {
		Length: 12.5, Width: 16, Height: 1.5, DimensionUnit: units.IN,
		Weight: 1, WeightUnit: units.LB, PackagingType: units.PackagingEnvelope,
	},
	"purolator_express_pack": {
		Length: 12.5, Width: 16, Height: 1, DimensionUnit: units.IN,
		Weight: 3, WeightUnit: units.LB, PackagingType: units.PackagingPak,
	},
	"purolator_express_box": {
		Length: 18, Width: 12, Height: 3.5, DimensionUnit: units.IN,
		Weight: 7, WeightUnit: units.LB, PackagingType: units.PackagingSmallBox,
	},
}

// Vocabulary is the Purolator entry of the carrier catalog.
var Vocabulary = units.Vocabulary{
	Carrier:       carrierName,
	Services:      Services,
	Packaging:     Packaging,
	LabelTypes:    LabelTypes,
	Options:       Options,
	Presets:       Presets,
	DimensionUnit: units.IN,
	WeightUnit:    units.LB,
	Required:      []units.Field{units.FieldWeight},
}

var serviceNames = map[string]string{
	"PurolatorExpress":              "Purolator Express",
	"PurolatorExpress9AM":           "Purolator Express 9AM",
	"PurolatorExpress10:30AM":       "Purolator Express 10:30AM",
	"PurolatorExpress12PM":          "Purolator Express 12PM",
	"PurolatorExpressEvening":       "Purolator Express Evening",
	"PurolatorGround":               "Purolator Ground",
	"PurolatorGround9AM":            "Purolator Ground 9AM",
	"PurolatorGround10:30AM":        "Purolator Ground 10:30AM",
	"PurolatorExpressU.S.":          "Purolator Express U.S.",
	"PurolatorGroundU.S.":           "Purolator Ground U.S.",
	"PurolatorExpressInternational": "Purolator Express International",
}

func mapServiceName(serviceID string) string {
	if name, ok := serviceNames[serviceID]; ok {
		return name
	}
	return serviceID
}

var paymentTypes = map[string]string{
	"sender":      "Sender",
	"recipient":   "Receiver",
	"third_party": "ThirdParty",
}

var scanStatuses = map[string]shipper.TrackingStatus{
	"ProofOfPickUp":  shipper.StatusPickedUp,
	"PickedUp":       shipper.StatusPickedUp,
	"InTransit":      shipper.StatusInTransit,
	"OnDelivery":     shipper.StatusOutForDelivery,
	"OutForDelivery": shipper.StatusOutForDelivery,
	"Delivery":       shipper.StatusDelivered,
	"Delivered":      shipper.StatusDelivered,
	"Undeliverable":  shipper.StatusException,
	"Exception":      shipper.StatusException,
	"ReturnToSender": shipper.StatusException,
	"Void":           shipper.StatusCancelled,
}

func mapScanStatus(scanType string) shipper.TrackingStatus {
	if status, ok := scanStatuses[scanType]; ok {
		return status
	}
	return shipper.StatusInTransit
}
