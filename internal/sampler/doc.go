// Package sampler expands per-parameter [min, max, step] ranges into discrete
// sample vectors and combines them into the Cartesian-product grid that a fit
// sweeps over.
//
// Sample counts follow numpy's rint: count = RoundToEven((max-min)/step) + 1,
// so a half-step remainder rounds to the even count. Values are spaced like
// numpy.linspace, with the last value pinned exactly to max.
//
// The order of parameters is the order of the Specification. Grid points
// iterate with the first parameter varying slowest, which is the order the
// library cache and the results table rely on.
package sampler
