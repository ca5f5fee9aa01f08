package units

// Kind names the vocabulary a Table maps.
type Kind string

const (
	KindService   Kind = "service"
	KindPackaging Kind = "packaging"
	KindOption    Kind = "option"
	KindLabel     Kind = "label type"
)

// Unified packaging keys shared by every carrier vocabulary.
const (
	PackagingEnvelope      = "envelope"
	PackagingPak           = "pak"
	PackagingTube          = "tube"
	PackagingPallet        = "pallet"
	PackagingSmallBox      = "small_box"
	PackagingMediumBox     = "medium_box"
	PackagingYourPackaging = "your_packaging"
)

// Unified option keys shared by every carrier vocabulary.
const (
	OptionCurrency              = "currency"
	OptionShipmentDate          = "shipment_date"
	OptionDeclaredValue         = "declared_value"
	OptionInsurance             = "insurance"
	OptionCashOnDelivery        = "cash_on_delivery"
	OptionSignatureConfirmation = "signature_confirmation"
	OptionSaturdayDelivery      = "saturday_delivery"
	OptionEmailNotification     = "email_notification"
	OptionEmailNotificationTo   = "email_notification_to"
	OptionHoldAtLocation        = "hold_at_location"
	OptionDangerousGood         = "dangerous_good"
)

// CommonOptions are understood by every carrier. They carry shipment-wide
// data and never appear in a carrier's own option list.
func CommonOptions() []OptionSpec {
	return []OptionSpec{
		{Key: OptionCurrency, Type: TypeString, Common: true},
		{Key: OptionShipmentDate, Type: TypeString, Common: true},
		{Key: OptionDeclaredValue, Type: TypeFloat, Common: true},
		{Key: OptionEmailNotificationTo, Type: TypeString, Common: true},
	}
}
