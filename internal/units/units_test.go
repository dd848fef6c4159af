package units

import (
	"math"
	"testing"
)

func TestConvertHeight(t *testing.T) {
	tests := []struct {
		name     string
		heightUM float64
		units    string
		expected float64
	}{
		{"1 um to nm", 1.0, NM, 1000.0},
		{"1 um to mm", 1.0, MM, 0.001},
		{"1 um to um", 1.0, UM, 1.0},
		{"unknown units default to um", 1.0, "unknown", 1.0},
		{"0 um to nm", 0.0, NM, 0.0},
		{"typical roughness 0.42 um to nm", 0.42, NM, 420.0},
		{"step height 12.5 um to mm", 12.5, MM, 0.0125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertHeight(tt.heightUM, tt.units)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ConvertHeight(%f, %s) = %f, want %f", tt.heightUM, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid um", UM, true},
		{"valid nm", NM, true},
		{"valid mm", MM, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "UM", false},
		{"case sensitive", "Nm", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "um, nm, mm"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}
