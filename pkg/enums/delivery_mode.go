package enums

import "fmt"

// DeliveryMode is the closed set of delivery modes a shop can offer and an
// order can be placed with. Unknown values are rejected at the edge.
type DeliveryMode string

const (
	DeliveryModePickup       DeliveryMode = "pickup"
	DeliveryModeSelfDelivery DeliveryMode = "self_delivery"
	DeliveryModeBulkDelivery DeliveryMode = "bulk_delivery"
	DeliveryModeTownieShip   DeliveryMode = "townie_ship"
)

var validDeliveryModes = []DeliveryMode{
	DeliveryModePickup,
	DeliveryModeSelfDelivery,
	DeliveryModeBulkDelivery,
	DeliveryModeTownieShip,
}

// String implements fmt.Stringer.
func (d DeliveryMode) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryMode.
func (d DeliveryMode) IsValid() bool {
	for _, candidate := range validDeliveryModes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryMode converts raw input into a DeliveryMode.
func ParseDeliveryMode(value string) (DeliveryMode, error) {
	for _, candidate := range validDeliveryModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery mode %q", value)
}
