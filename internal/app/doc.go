// Package app contains the core application logic. It wires the fit file,
// the user defaults, the synthesis program and the optional sinks (results
// database, workbook, progress server, status endpoint) around one fit run,
// decoupled from any specific entrypoint like a CLI.
package app
