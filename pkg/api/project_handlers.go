package api

import (
	"errors"
	"net/http"

	"github.com/taskfolio/taskfolio/pkg/authz"
	"github.com/taskfolio/taskfolio/pkg/httputil"
	"github.com/taskfolio/taskfolio/pkg/middleware"
	"github.com/taskfolio/taskfolio/pkg/projects"
	"github.com/taskfolio/taskfolio/pkg/team"
)

// createProject handles POST /api/v1/projects
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	var req projects.CreateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	project := &projects.Project{
		AccountID:   actx.AccountID,
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   actx.UserID,
	}
	if err := s.store.CreateProject(project); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, project)
}

// listProjects handles GET /api/v1/projects. Owners and admins see every
// project in the account; members see only the projects they are assigned
// to.
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	var (
		list []*projects.Project
		err  error
	)
	if actx.Role == authz.RoleMember {
		list, err = s.store.ListProjectsForMember(actx.AccountID, actx.UserID)
	} else {
		list, err = s.store.ListProjects(actx.AccountID)
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// getProject handles GET /api/v1/projects/{project_id}
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "project_id")
	if !ok {
		return
	}

	project, err := s.store.GetProject(actx.AccountID, projectID)
	if errors.Is(err, projects.ErrNotFound) {
		httputil.WriteNotFoundError(w, "project not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, project)
}

// updateProject handles PUT /api/v1/projects/{project_id}
func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "project_id")
	if !ok {
		return
	}
	var req projects.UpdateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := s.store.UpdateProject(actx.AccountID, projectID, &req); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			httputil.WriteNotFoundError(w, "project not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	project, err := s.store.GetProject(actx.AccountID, projectID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, project)
}

// deleteProject handles DELETE /api/v1/projects/{project_id}
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "project_id")
	if !ok {
		return
	}

	if err := s.store.DeleteProject(actx.AccountID, projectID); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			httputil.WriteNotFoundError(w, "project not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type assignmentRequest struct {
	UserID int64 `json:"user_id"`
}

// assignProject handles POST /api/v1/projects/{project_id}/assignments.
// Only accepted members of the account can be assigned.
func (s *Server) assignProject(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "project_id")
	if !ok {
		return
	}
	var req assignmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.UserID, "user_id") {
		return
	}

	// The project itself must be in the caller's account scope.
	if _, err := s.store.GetProject(actx.AccountID, projectID); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			httputil.WriteNotFoundError(w, "project not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if _, err := s.team.GetMember(actx.AccountID, req.UserID); err != nil {
		if errors.Is(err, team.ErrNotFound) {
			httputil.WriteValidationError(w, "user is not a team member")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if err := s.store.AssignToProject(projectID, req.UserID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// unassignProject handles DELETE /api/v1/projects/{project_id}/assignments/{user_id}
func (s *Server) unassignProject(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "project_id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	if _, err := s.store.GetProject(actx.AccountID, projectID); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			httputil.WriteNotFoundError(w, "project not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if err := s.store.UnassignFromProject(projectID, userID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
