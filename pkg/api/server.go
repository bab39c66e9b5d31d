package api

import (
	"database/sql"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/taskfolio/taskfolio/pkg/auth"
	"github.com/taskfolio/taskfolio/pkg/authz"
	"github.com/taskfolio/taskfolio/pkg/httputil"
	"github.com/taskfolio/taskfolio/pkg/middleware"
	"github.com/taskfolio/taskfolio/pkg/observability"
	"github.com/taskfolio/taskfolio/pkg/projects"
	"github.com/taskfolio/taskfolio/pkg/team"
)

// Options configures the API server.
type Options struct {
	DB      *sql.DB
	Redis   *redis.Client          // optional; enables distributed rate limiting
	Logger  *observability.Logger  // optional; defaults to stdout JSON at info level
	Metrics *observability.Metrics // optional
}

// Server represents the HTTP API server. It owns the router, the domain
// services, and the authorization gate, and wires the middleware chain:
// request id, panic recovery, metrics, rate limiting, token authentication,
// and role resolution.
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger

	gate   *authz.Gate
	team   *team.PostgresService
	store  *projects.PostgresStore
	tokens *auth.TokenManager

	authMW  *middleware.AuthMiddleware
	authzMW *middleware.AuthorizationMiddleware
}

// NewServer creates a new API server over the given database.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	teamService := team.NewPostgresService(opts.DB)
	store := projects.NewPostgresStore(opts.DB)
	facts := &factSource{team: teamService, store: store}

	gate := authz.NewGate(
		facts,
		observability.NewDecisionSink(logger, opts.Metrics),
		observability.NewInvalidRoleReporter(logger, opts.Metrics),
	)

	tokens := auth.NewTokenManager(opts.DB)
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		gate:    gate,
		team:    teamService,
		store:   store,
		tokens:  tokens,
		authMW:  middleware.NewAuthMiddleware(tokens, false),
		authzMW: middleware.NewAuthorizationMiddleware(gate, store),
	}

	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.RecoveryMiddleware)
	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	if opts.Redis != nil {
		s.router.Use(middleware.NewDistributedRateLimitMiddleware(opts.Redis).Handler)
	}

	s.setupRoutes()

	// Spans are no-ops until a tracer provider is installed globally
	// (observability.InitTracing), so the wrapper costs nothing when
	// tracing is off.
	s.handler = otelhttp.NewHandler(s.router, "taskfolio.http")
	return s
}

// setupRoutes configures all the API routes.
func (s *Server) setupRoutes() {
	// Invitation routes reachable through the emailed token. Viewing and
	// declining need no session; accepting binds the invitation to the
	// authenticated user.
	s.router.HandleFunc("/api/v1/invitations/{token}", s.getInvitation).Methods("GET")
	s.router.HandleFunc("/api/v1/invitations/{token}/decline", s.declineInvitation).Methods("POST")
	s.router.Handle("/api/v1/invitations/{token}/accept",
		s.authMW.Handler(http.HandlerFunc(s.acceptInvitation))).Methods("POST")

	protected := s.router.PathPrefix("/api/v1").Subrouter()
	protected.Use(s.authMW.Handler, s.authzMW.Handler)

	// Identity and API tokens
	protected.HandleFunc("/me", s.getMe).Methods("GET")
	protected.HandleFunc("/tokens", s.createToken).Methods("POST")
	protected.HandleFunc("/tokens/{token_id}", s.revokeToken).Methods("DELETE")

	// Team management
	protected.Handle("/team/invitations",
		http.HandlerFunc(s.inviteMember)).Methods("POST")
	protected.Handle("/team/invitations",
		s.requirePermission(authz.PermissionViewTeamMembers, s.listInvitations)).Methods("GET")
	protected.Handle("/team/members",
		s.requirePermission(authz.PermissionViewTeamMembers, s.listMembers)).Methods("GET")
	protected.HandleFunc("/team/members/{user_id}/role", s.updateMemberRole).Methods("PUT")
	protected.HandleFunc("/team/members/{user_id}", s.removeMember).Methods("DELETE")

	// Projects
	protected.Handle("/projects",
		s.requirePermission(authz.PermissionCreateProjects, s.createProject)).Methods("POST")
	protected.HandleFunc("/projects", s.listProjects).Methods("GET")
	protected.Handle("/projects/{project_id}",
		s.requireProjectAccess(authz.ActionView, s.getProject)).Methods("GET")
	protected.Handle("/projects/{project_id}",
		s.requireProjectAccess(authz.ActionEdit, s.updateProject)).Methods("PUT")
	protected.Handle("/projects/{project_id}",
		s.requireProjectAccess(authz.ActionDelete, s.deleteProject)).Methods("DELETE")

	// Project assignments are a management operation, not an assigned-scope
	// edit, so they demand the account-wide edit permission.
	protected.Handle("/projects/{project_id}/assignments",
		s.requirePermission(authz.PermissionEditAllProjects, s.assignProject)).Methods("POST")
	protected.Handle("/projects/{project_id}/assignments/{user_id}",
		s.requirePermission(authz.PermissionEditAllProjects, s.unassignProject)).Methods("DELETE")

	// Tasks. Creation needs the coarse permission and reach into the parent
	// project.
	createTask := s.authzMW.RequirePermission(authz.PermissionCreateTasks)(
		s.authzMW.RequireProjectAccess(authz.ActionView)(http.HandlerFunc(s.createTask)))
	protected.Handle("/projects/{project_id}/tasks", createTask).Methods("POST")
	protected.Handle("/projects/{project_id}/tasks",
		s.requireProjectAccess(authz.ActionView, s.listTasks)).Methods("GET")
	protected.Handle("/tasks/{task_id}",
		s.requireTaskAccess(authz.ActionView, s.getTask)).Methods("GET")
	protected.Handle("/tasks/{task_id}",
		s.requireTaskAccess(authz.ActionEdit, s.updateTask)).Methods("PUT")
	protected.Handle("/tasks/{task_id}",
		s.requireTaskAccess(authz.ActionDelete, s.deleteTask)).Methods("DELETE")
	protected.Handle("/tasks/{task_id}/assignee",
		s.requireTaskAccess(authz.ActionAssign, s.assignTask)).Methods("PUT")
}

func (s *Server) requirePermission(perm authz.Permission, h http.HandlerFunc) http.Handler {
	return s.authzMW.RequirePermission(perm)(h)
}

func (s *Server) requireProjectAccess(action authz.Action, h http.HandlerFunc) http.Handler {
	return s.authzMW.RequireProjectAccess(action)(h)
}

func (s *Server) requireTaskAccess(action authz.Action, h http.HandlerFunc) http.Handler {
	return s.authzMW.RequireTaskAccess(action)(h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
