// Package synfit fits stellar parameters by sweeping a grid and scoring every
// grid point against an observed spectrum.
//
// An Engine walks one fit through a fixed sequence of stages:
//
//	Initialized -> Sampled -> LibraryBuilt -> Iterating -> Scored -> BestFitSelected
//
// Any error moves it to Failed and ends the fit; there is no partial result.
//
// Sampled expands the fit ranges into the Cartesian grid. LibraryBuilt
// synthesizes one unconvolved spectrum per distinct tuple of non-convolution
// values when vrot or vmac_rt is swept (see package library). Iterating
// produces the synthetic spectrum of every grid point, through the library
// when possible, and writes its chi-square into the table row of that point.
// BestFitSelected picks the row with the smallest finite chi-square.
package synfit
