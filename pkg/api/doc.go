// Package api implements the HTTP API server.
//
// Every request flows through the same middleware chain: request id
// assignment, panic recovery, Prometheus instrumentation, Redis-backed rate
// limiting, bearer-token authentication, and role resolution. Handlers read
// the resolved authorization context from the request and never re-derive
// identity themselves.
//
// Route protection comes in two shapes. Coarse operations (team management,
// project creation, billing) are gated by a permission check and deny with
// 403. Resource-scoped operations (a specific project or task) are gated by
// an access check against the resource's ownership and assignment facts, and
// deny with 404 so callers cannot distinguish a forbidden resource from a
// missing one.
//
// Invitation view and decline are reachable without a session; the emailed
// token is the capability. Accepting requires authentication because it
// binds the invitation to the calling user.
package api
