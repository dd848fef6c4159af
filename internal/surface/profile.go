package surface

import (
	"fmt"
	"math"
)

// Profile is the 1-D analogue of Surface: a single line scan with a
// uniform step in micrometres. It obeys the same invariants in one
// dimension: positive step, at least two samples, finite heights.
type Profile struct {
	Data []float64
	Step float64
}

// NewProfile validates and wraps a line scan. The data slice is owned by
// the returned Profile.
func NewProfile(data []float64, step float64) (*Profile, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("profile: need at least 2 samples, got %d", len(data))
	}
	if step <= 0 {
		return nil, fmt.Errorf("profile: step must be positive, got %g", step)
	}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("profile: non-finite sample at index %d", i)
		}
	}
	return &Profile{Data: data, Step: step}, nil
}

// LengthUM returns the physical length of the profile in micrometres.
func (p *Profile) LengthUM() float64 { return float64(len(p.Data)-1) * p.Step }

// Mean returns the arithmetic mean height.
func (p *Profile) Mean() float64 {
	sum := 0.0
	for _, v := range p.Data {
		sum += v
	}
	return sum / float64(len(p.Data))
}

// Center returns a new zero-mean Profile.
func (p *Profile) Center() *Profile {
	mean := p.Mean()
	data := make([]float64, len(p.Data))
	for i, v := range p.Data {
		data[i] = v - mean
	}
	return &Profile{Data: data, Step: p.Step}
}

// Clone returns an independent deep copy.
func (p *Profile) Clone() *Profile {
	return &Profile{Data: append([]float64(nil), p.Data...), Step: p.Step}
}
