package level

import (
	"fmt"

	"github.com/metrolab/toposcan/internal/surface"
)

// FillInvalid replaces every invalid sample with an inverse-distance
// weighted average of the valid samples found in the smallest
// neighbourhood ring that contains any. The result carries no validity
// mask: the grid is dense afterwards.
func FillInvalid(s *surface.Surface) (*surface.Surface, error) {
	if s.AllValid() {
		out := s.Clone()
		out.Valid = nil
		return out, nil
	}

	data := append([]float64(nil), s.Data...)
	maxRadius := s.Rows
	if s.Cols > maxRadius {
		maxRadius = s.Cols
	}

	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			if s.Valid[r*s.Cols+c] {
				continue
			}
			v, ok := idwEstimate(s, r, c, maxRadius)
			if !ok {
				return nil, fmt.Errorf("%w: no valid neighbours anywhere in grid", ErrInsufficientValidData)
			}
			data[r*s.Cols+c] = v
		}
	}

	out := s.Clone()
	out.Data = data
	out.Valid = nil
	return out, nil
}

// idwEstimate expands square rings around (row, col) until a ring holds
// valid samples, then returns the inverse-square-distance weighted mean
// of the valid samples within that ring radius. Physical step sizes
// weight anisotropic grids correctly.
func idwEstimate(s *surface.Surface, row, col, maxRadius int) (float64, bool) {
	for radius := 1; radius <= maxRadius; radius++ {
		sumW := 0.0
		sumWV := 0.0
		found := false
		for dr := -radius; dr <= radius; dr++ {
			r := row + dr
			if r < 0 || r >= s.Rows {
				continue
			}
			for dc := -radius; dc <= radius; dc++ {
				c := col + dc
				if c < 0 || c >= s.Cols {
					continue
				}
				if dr == 0 && dc == 0 {
					continue
				}
				i := r*s.Cols + c
				if !s.Valid[i] {
					continue
				}
				dx := float64(dc) * s.StepX
				dy := float64(dr) * s.StepY
				w := 1 / (dx*dx + dy*dy)
				sumW += w
				sumWV += w * s.Data[i]
				found = true
			}
		}
		if found {
			return sumWV / sumW, true
		}
	}
	return 0, false
}
