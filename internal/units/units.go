// Package units provides shared constants and conversion for height units
package units

// Unit constants
const (
	UM = "um"
	NM = "nm"
	MM = "mm"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{UM, NM, MM}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "um, nm, mm"
}

// ConvertHeight converts a height from micrometres to the target units.
// The analysis stages compute all heights in micrometres.
func ConvertHeight(heightUM float64, targetUnits string) float64 {
	switch targetUnits {
	case NM:
		return heightUM * 1000
	case MM:
		return heightUM / 1000
	case UM:
		return heightUM
	default:
		return heightUM // default to micrometres if unknown unit
	}
}
