// Package surface owns the canonical in-memory representation of a
// topography measurement: a uniformly sampled 2-D height grid with
// physical step sizes, an optional per-pixel validity mask, and
// acquisition metadata.
//
// Surfaces are treated as immutable once built. Every operation that
// changes height data returns a new Surface; nothing aliases the grid
// of another Surface. Downstream layers (leveling, filtering, parameter
// computation) rely on that ownership rule.
//
// Dependency rule: this package sits at the bottom of the pipeline and
// must not import any other toposcan package.
package surface
