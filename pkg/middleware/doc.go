// Package middleware provides HTTP middleware for authentication,
// authorization, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware: bearer token
// authentication, per-request role and account-scope resolution,
// permission and resource-access enforcement, and Redis-backed rate
// limiting.
//
// # Middleware Components
//
// AuthMiddleware: Token-based authentication
//
//	authMW := middleware.NewAuthMiddleware(tokenManager, false)
//	router.Use(authMW.Handler)
//	// Extracts Bearer token, validates, adds AuthContext to request
//
// AuthorizationMiddleware: role resolution and enforcement
//
//	authzMW := middleware.NewAuthorizationMiddleware(gate, projectStore)
//	router.Use(authzMW.Handler)                                     // resolve role + account scope
//	r.Handle(..., authzMW.RequirePermission(perm)(h))               // coarse permission -> 403
//	r.Handle(..., authzMW.RequireProjectAccess(authz.ActionEdit)(h)) // resource access -> 404
//
// Resource-access denials return 404, not 403, so a member probing ids
// cannot distinguish "exists but out of reach" from "does not exist".
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting
//
//	limiter := middleware.NewDistributedRateLimitMiddleware(redisClient)
//	router.Use(limiter.Handler)
//
// # Rate Limiting
//
// Anonymous: 100 req/min keyed by client IP.
// Per-User: 1000 req/min keyed by user id.
// Redis errors fail open by default.
//
// # Related Packages
//
//   - pkg/auth: Token validation
//   - pkg/authz: Role resolution, permission catalog, access predicates
package middleware
