// Package filter decomposes a leveled surface into long-wavelength
// (waviness) and short-wavelength (roughness) components at an explicit
// cutoff wavelength.
//
// Three filter families are provided: the standard Gaussian regression
// filter (the default, matching the closed-form 50% amplitude
// transmission at the cutoff), a robust Gaussian variant that
// down-weights outlier asperities through iterative reweighting, and a
// smoothing-spline filter for surfaces where Gaussian edge behaviour is
// unsuitable.
//
// All filters are linear and complementary: the returned components
// reconstruct the input exactly, long + short == input, because the
// short-wavelength component is computed as the residual of the
// long-wavelength one.
package filter
