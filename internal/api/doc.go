// Package api is the narrow contract between the HTTP layer and the job
// core.
//
// Service handles admission (ID allocation, collision rejection, artifact
// persistence, permit acquisition) and the read-side projections used for
// polling. The HTTP server and CLI never touch the store or executor
// directly; everything goes through this facade. Client mirrors the same
// operations over HTTP for whisperctl.
package api
