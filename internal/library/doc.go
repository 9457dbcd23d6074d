// Package library caches unconvolved synthetic spectra so that grid points
// differing only in their convolution parameters (vrot, vmac_rt) are produced
// by the cheap convolution-only path of the synthesis program.
//
// # Keys
//
// Grid dimensions are split into the convolution set and the synthesis set.
// Every distinct tuple of synthesis values is one library entry, keyed by a
// SHA-256 digest of the names and the IEEE-754 bits of the values. A grid
// whose only dimensions are convolution parameters has exactly one entry,
// BaselineKey.
//
// # Concurrency
//
// Entries are write-once. Concurrent requests for the same key share one
// synthesis (singleflight), and Build runs distinct keys with bounded
// parallelism (errgroup). The first failed build cancels the rest.
package library
