// Package daemon hosts the whisperd process: a single-instance file lock on
// the work directory and the HTTP server that exposes the job facade.
//
// The HTTP layer is deliberately thin. Handlers decode requests, call
// api.Service, and map sentinel errors to status codes; no job semantics live
// here.
package daemon
