package surface

import (
	"fmt"
	"math"
)

// Metadata records acquisition context carried along with a height grid.
// Fields are informational only; no computation depends on them.
type Metadata struct {
	Instrument   string // instrument model reported by the source file
	Operator     string // operator name, if the format stores one
	Comment      string // free-form comment from the file header
	SourceFormat string // registry name of the decoder that produced the surface
	TextEncoding string // encoding the header text was transcoded from
	ZUnit        string // physical height unit, normally "um"
}

// Surface is a uniformly sampled 2-D height field. Data is stored
// row-major with Rows*Cols samples in micrometres. StepX and StepY are
// the physical sample spacings in micrometres.
//
// Valid marks per-pixel measurement validity. A nil mask means every
// sample is valid. Invalid samples hold a placeholder height and must be
// filled (see the level package) before filtering.
type Surface struct {
	Data  []float64
	Rows  int
	Cols  int
	StepX float64
	StepY float64
	Valid []bool
	Meta  Metadata
}

// New validates the grid invariants and wraps the given samples in a
// Surface. The data slice is owned by the returned Surface; callers must
// not retain a reference to it.
func New(data []float64, rows, cols int, stepX, stepY float64) (*Surface, error) {
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("surface: grid must be at least 2x2, got %dx%d", rows, cols)
	}
	if stepX <= 0 || stepY <= 0 {
		return nil, fmt.Errorf("surface: step sizes must be positive, got x=%g y=%g", stepX, stepY)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("surface: data length %d does not match %dx%d grid", len(data), rows, cols)
	}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("surface: non-finite sample at index %d", i)
		}
	}
	return &Surface{Data: data, Rows: rows, Cols: cols, StepX: stepX, StepY: stepY}, nil
}

// MustNew is New for synthetic grids in tests and examples; it panics on
// invalid input.
func MustNew(data []float64, rows, cols int, stepX, stepY float64) *Surface {
	s, err := New(data, rows, cols, stepX, stepY)
	if err != nil {
		panic(err)
	}
	return s
}

// At returns the height sample at grid position (row, col).
func (s *Surface) At(row, col int) float64 {
	return s.Data[row*s.Cols+col]
}

// IsValid reports whether the sample at (row, col) is a real measurement.
func (s *Surface) IsValid(row, col int) bool {
	if s.Valid == nil {
		return true
	}
	return s.Valid[row*s.Cols+col]
}

// AllValid reports whether the surface has no masked-out samples.
func (s *Surface) AllValid() bool {
	if s.Valid == nil {
		return true
	}
	for _, ok := range s.Valid {
		if !ok {
			return false
		}
	}
	return true
}

// InvalidFraction returns the fraction of samples marked invalid, in [0, 1].
func (s *Surface) InvalidFraction() float64 {
	if s.Valid == nil {
		return 0
	}
	n := 0
	for _, ok := range s.Valid {
		if !ok {
			n++
		}
	}
	return float64(n) / float64(len(s.Valid))
}

// WidthUM returns the physical extent along X in micrometres.
func (s *Surface) WidthUM() float64 { return float64(s.Cols-1) * s.StepX }

// HeightUM returns the physical extent along Y in micrometres.
func (s *Surface) HeightUM() float64 { return float64(s.Rows-1) * s.StepY }

// Clone returns an independent deep copy, including the validity mask.
func (s *Surface) Clone() *Surface {
	out := &Surface{
		Data:  append([]float64(nil), s.Data...),
		Rows:  s.Rows,
		Cols:  s.Cols,
		StepX: s.StepX,
		StepY: s.StepY,
		Meta:  s.Meta,
	}
	if s.Valid != nil {
		out.Valid = append([]bool(nil), s.Valid...)
	}
	return out
}

// derive builds a new Surface sharing geometry and metadata with s but
// owning the given sample slice.
func (s *Surface) derive(data []float64) *Surface {
	out := &Surface{
		Data:  data,
		Rows:  s.Rows,
		Cols:  s.Cols,
		StepX: s.StepX,
		StepY: s.StepY,
		Meta:  s.Meta,
	}
	if s.Valid != nil {
		out.Valid = append([]bool(nil), s.Valid...)
	}
	return out
}

// Mean returns the arithmetic mean height over valid samples.
func (s *Surface) Mean() float64 {
	sum := 0.0
	n := 0
	for i, v := range s.Data {
		if s.Valid != nil && !s.Valid[i] {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// MinMax returns the minimum and maximum height over valid samples.
func (s *Surface) MinMax() (min, max float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for i, v := range s.Data {
		if s.Valid != nil && !s.Valid[i] {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min > max {
		return 0, 0
	}
	return min, max
}

// Center returns a new Surface with the mean height subtracted so the
// valid samples are zero-mean.
func (s *Surface) Center() *Surface {
	mean := s.Mean()
	data := make([]float64, len(s.Data))
	for i, v := range s.Data {
		data[i] = v - mean
	}
	return s.derive(data)
}

// Subtract returns s - other element-wise. The two surfaces must share
// grid dimensions.
func (s *Surface) Subtract(other *Surface) (*Surface, error) {
	if s.Rows != other.Rows || s.Cols != other.Cols {
		return nil, fmt.Errorf("surface: dimension mismatch %dx%d vs %dx%d",
			s.Rows, s.Cols, other.Rows, other.Cols)
	}
	data := make([]float64, len(s.Data))
	for i := range s.Data {
		data[i] = s.Data[i] - other.Data[i]
	}
	return s.derive(data), nil
}

// Add returns s + other element-wise. The two surfaces must share grid
// dimensions.
func (s *Surface) Add(other *Surface) (*Surface, error) {
	if s.Rows != other.Rows || s.Cols != other.Cols {
		return nil, fmt.Errorf("surface: dimension mismatch %dx%d vs %dx%d",
			s.Rows, s.Cols, other.Rows, other.Cols)
	}
	data := make([]float64, len(s.Data))
	for i := range s.Data {
		data[i] = s.Data[i] + other.Data[i]
	}
	return s.derive(data), nil
}

// RowProfile extracts a single scan line along X as a Profile.
func (s *Surface) RowProfile(row int) (*Profile, error) {
	if row < 0 || row >= s.Rows {
		return nil, fmt.Errorf("surface: row %d out of range [0, %d)", row, s.Rows)
	}
	data := make([]float64, s.Cols)
	copy(data, s.Data[row*s.Cols:(row+1)*s.Cols])
	return NewProfile(data, s.StepX)
}

// ColProfile extracts a single scan line along Y as a Profile.
func (s *Surface) ColProfile(col int) (*Profile, error) {
	if col < 0 || col >= s.Cols {
		return nil, fmt.Errorf("surface: col %d out of range [0, %d)", col, s.Cols)
	}
	data := make([]float64, s.Rows)
	for r := 0; r < s.Rows; r++ {
		data[r] = s.At(r, col)
	}
	return NewProfile(data, s.StepY)
}
