// Package level removes deterministic form error and repairs instrument
// artifacts before filtering.
//
// Leveling fits a least-squares polynomial (order 0 removes the mean,
// order 1 a plane, higher orders curvature terms) over the valid samples
// only, then subtracts the fitted form from every sample, including
// invalid ones, so the whole grid is corrected consistently.
//
// Outlier handling fills samples flagged invalid by the decoder via
// inverse-distance interpolation among nearby valid neighbours, so the
// filtering stage always sees a dense grid. When too much of the grid
// is invalid the stage refuses with ErrInsufficientValidData instead of
// producing an unreliable surface.
package level
