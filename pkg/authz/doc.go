// Package authz implements the account-scoping and authorization engine.
//
// The engine is a library, not a service: it consumes membership and
// resource-ownership facts through narrow interfaces, computes the caller's
// effective role and account scope fresh on every call, and returns
// allow/deny decisions as values. It performs no writes, keeps no cache, and
// never renders user-facing messages; the HTTP layer decides how a denial
// turns into a status code.
package authz
