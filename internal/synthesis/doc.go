// Package synthesis is the boundary to the external spectral-synthesis program.
//
// The program (SYNPLOT under IDL or GDL) is a black box: it receives a command
// line built from a flat `key = value` list, works inside a synthesis
// directory, and leaves the computed spectrum in a two-column text file
// (fort.11) in that directory. Because the program reads and writes files at
// fixed paths, every invocation owns its working directory for its whole
// duration; Workspaces hands those directories out.
//
// Two entry points exist. Synthesize runs the full synthesis. Convolve reuses
// the unconvolved artifacts of an earlier synthesis and only applies the
// rotational and macroturbulent broadening, which is far cheaper.
package synthesis
