package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/taskfolio/taskfolio/pkg/authz"
	"github.com/taskfolio/taskfolio/pkg/contextkeys"
)

// ResourceFactsProvider fetches the ownership and assignment facts the gate
// needs to evaluate resource-scoped checks.
type ResourceFactsProvider interface {
	ProjectFacts(ctx context.Context, projectID, requesterID int64) (authz.ResourceFacts, error)
	TaskFacts(ctx context.Context, taskID int64) (authz.ResourceFacts, error)
}

// AuthorizationMiddleware resolves the caller's role and account scope on
// every request and threads the result through the request context. Nothing
// is cached across requests; membership changes take effect immediately.
type AuthorizationMiddleware struct {
	gate  *authz.Gate
	facts ResourceFactsProvider
}

// NewAuthorizationMiddleware creates authorization middleware over the gate.
func NewAuthorizationMiddleware(gate *authz.Gate, facts ResourceFactsProvider) *AuthorizationMiddleware {
	return &AuthorizationMiddleware{gate: gate, facts: facts}
}

// Handler resolves the authorization context for the authenticated caller.
// It must run after AuthMiddleware.
func (m *AuthorizationMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil || authCtx.User == nil {
			m.forbidden(w, "authentication required")
			return
		}

		authzCtx, err := m.gate.Context(r.Context(), authCtx.User.ID)
		if err != nil {
			if errors.Is(err, authz.ErrInvalidUserID) {
				m.forbidden(w, "authentication required")
				return
			}
			http.Error(w, "failed to resolve authorization context", http.StatusInternalServerError)
			return
		}

		ctx := contextkeys.WithAuthz(r.Context(), authzCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission creates middleware that checks a coarse permission
// against the caller's resolved role. Denials are 403s.
func (m *AuthorizationMiddleware) RequirePermission(perm authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authzCtx := GetAuthorizationContext(r)
			if authzCtx == nil {
				m.forbidden(w, "authentication required")
				return
			}

			decision, err := m.gate.Authorize(r.Context(), authzCtx.UserID, perm)
			if err != nil {
				http.Error(w, "authorization check failed", http.StatusInternalServerError)
				return
			}
			if !decision.Allowed {
				m.forbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireProjectAccess creates middleware that checks the given action
// against the project named by the project_id route variable. A denied or
// missing project both produce 404 so responses do not reveal whether a
// project outside the caller's reach exists.
func (m *AuthorizationMiddleware) RequireProjectAccess(action authz.Action) func(http.Handler) http.Handler {
	return m.requireResourceAccess(action, "project_id", func(ctx context.Context, id, requesterID int64) (authz.ResourceFacts, error) {
		return m.facts.ProjectFacts(ctx, id, requesterID)
	})
}

// RequireTaskAccess creates middleware that checks the given action against
// the task named by the task_id route variable, with the same non-leaking
// 404 behavior as project access.
func (m *AuthorizationMiddleware) RequireTaskAccess(action authz.Action) func(http.Handler) http.Handler {
	return m.requireResourceAccess(action, "task_id", func(ctx context.Context, id, _ int64) (authz.ResourceFacts, error) {
		return m.facts.TaskFacts(ctx, id)
	})
}

func (m *AuthorizationMiddleware) requireResourceAccess(
	action authz.Action,
	routeVar string,
	lookup func(ctx context.Context, id, requesterID int64) (authz.ResourceFacts, error),
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authzCtx := GetAuthorizationContext(r)
			if authzCtx == nil {
				m.forbidden(w, "authentication required")
				return
			}

			resourceID, err := strconv.ParseInt(mux.Vars(r)[routeVar], 10, 64)
			if err != nil {
				http.Error(w, "invalid resource id", http.StatusBadRequest)
				return
			}

			facts, err := lookup(r.Context(), resourceID, authzCtx.UserID)
			if err != nil {
				if errors.Is(err, authz.ErrResourceNotFound) {
					m.notFound(w)
					return
				}
				http.Error(w, "authorization check failed", http.StatusInternalServerError)
				return
			}

			decision, err := m.gate.AuthorizeResource(r.Context(), authzCtx.UserID, facts, action)
			if err != nil {
				http.Error(w, "authorization check failed", http.StatusInternalServerError)
				return
			}
			if !decision.Allowed {
				m.notFound(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthorizationMiddleware) forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

func (m *AuthorizationMiddleware) notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"resource not found"}`))
}

// GetAuthorizationContext extracts the resolved authorization context from
// the request.
func GetAuthorizationContext(r *http.Request) *authz.AuthorizationContext {
	ctx := r.Context().Value(contextkeys.AuthzKey)
	if ctx == nil {
		return nil
	}
	authzCtx, ok := ctx.(*authz.AuthorizationContext)
	if !ok {
		return nil
	}
	return authzCtx
}
