package authz

import "errors"

var (
	// ErrInvalidUserID is returned when role or scope resolution is
	// attempted without a caller identity. Authentication happens
	// upstream; the engine refuses to substitute a default role for an
	// absent id.
	ErrInvalidUserID = errors.New("authz: invalid user id")

	// ErrResourceNotFound is returned by fact lookups when the resource
	// does not exist. The engine propagates it unchanged and returns no
	// decision rather than guessing.
	ErrResourceNotFound = errors.New("authz: resource not found")
)
