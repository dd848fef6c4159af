package surface

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		data  []float64
		rows  int
		cols  int
		stepX float64
		stepY float64
		ok    bool
	}{
		{"valid 2x2", []float64{0, 1, 2, 3}, 2, 2, 1, 1, true},
		{"too small", []float64{0, 1}, 1, 2, 1, 1, false},
		{"zero step x", []float64{0, 1, 2, 3}, 2, 2, 0, 1, false},
		{"negative step y", []float64{0, 1, 2, 3}, 2, 2, 1, -0.5, false},
		{"length mismatch", []float64{0, 1, 2}, 2, 2, 1, 1, false},
		{"nan sample", []float64{0, math.NaN(), 2, 3}, 2, 2, 1, 1, false},
		{"inf sample", []float64{0, math.Inf(1), 2, 3}, 2, 2, 1, 1, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.data, tc.rows, tc.cols, tc.stepX, tc.stepY)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.rows, s.Rows)
				assert.Equal(t, tc.cols, s.Cols)
			} else {
				assert.Error(t, err)
				assert.Nil(t, s)
			}
		})
	}
}

func TestCenter_ZeroMean(t *testing.T) {
	t.Parallel()

	s := MustNew([]float64{1, 2, 3, 4, 5, 6}, 2, 3, 0.5, 0.5)
	c := s.Center()

	assert.InDelta(t, 0, c.Mean(), 1e-12)
	// Source must be untouched.
	assert.Equal(t, 3.5, s.Mean())
}

func TestCloneIndependence(t *testing.T) {
	t.Parallel()

	s := MustNew([]float64{1, 2, 3, 4}, 2, 2, 1, 1)
	s.Valid = []bool{true, false, true, true}
	c := s.Clone()
	c.Data[0] = 99
	c.Valid[1] = true

	assert.Equal(t, 1.0, s.Data[0])
	assert.False(t, s.Valid[1])
}

func TestSubtractAdd_Complement(t *testing.T) {
	t.Parallel()

	a := MustNew([]float64{5, 4, 3, 2}, 2, 2, 1, 1)
	b := MustNew([]float64{1, 1, 1, 1}, 2, 2, 1, 1)

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	sum, err := diff.Add(b)
	require.NoError(t, err)

	for i := range a.Data {
		assert.InDelta(t, a.Data[i], sum.Data[i], 1e-12)
	}

	bad := MustNew(make([]float64, 6), 2, 3, 1, 1)
	_, err = a.Subtract(bad)
	assert.Error(t, err)
}

func TestInvalidFraction(t *testing.T) {
	t.Parallel()

	s := MustNew([]float64{0, 0, 0, 0}, 2, 2, 1, 1)
	assert.Equal(t, 0.0, s.InvalidFraction())
	assert.True(t, s.AllValid())

	s.Valid = []bool{true, false, false, true}
	assert.Equal(t, 0.5, s.InvalidFraction())
	assert.False(t, s.AllValid())
}

func TestProfiles(t *testing.T) {
	t.Parallel()

	s := MustNew([]float64{
		1, 2, 3,
		4, 5, 6,
	}, 2, 3, 0.25, 0.5)

	row, err := s.RowProfile(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, row.Data)
	assert.Equal(t, 0.25, row.Step)

	col, err := s.ColProfile(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 6}, col.Data)
	assert.Equal(t, 0.5, col.Step)

	_, err = s.RowProfile(5)
	assert.Error(t, err)
	_, err = s.ColProfile(-1)
	assert.Error(t, err)
}

func TestPhysicalExtent(t *testing.T) {
	t.Parallel()

	s := MustNew(make([]float64, 12), 3, 4, 2.0, 1.5)
	assert.InDelta(t, 6.0, s.WidthUM(), 1e-12)
	assert.InDelta(t, 3.0, s.HeightUM(), 1e-12)
}

func TestMinMax_SkipsInvalid(t *testing.T) {
	t.Parallel()

	s := MustNew([]float64{-5, 2, 100, 3}, 2, 2, 1, 1)
	s.Valid = []bool{true, true, false, true}
	min, max := s.MinMax()
	assert.Equal(t, -5.0, min)
	assert.Equal(t, 3.0, max)
}
