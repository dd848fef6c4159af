// Package params computes standardised areal and profile texture
// parameters from measured surfaces.
//
// Areal parameters follow the ISO 25178-2 definitions and are grouped
// the way the standard groups them: amplitude (Sa, Sq, Ssk, Sku, Sp,
// Sv, Sz), spatial (Sal, Str), hybrid (Sdq, Sdr) and functional (the
// Sk family and the V volume parameters from the areal material ratio
// curve). Profile parameters follow ISO 4287 (Ra, Rq and friends) and
// operate on single extracted line scans.
//
// All heights are micrometres and all computations assume the surface
// has already been levelled and filled; surfaces that still carry
// invalid samples are rejected rather than silently skipped.
package params
