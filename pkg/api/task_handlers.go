package api

import (
	"errors"
	"net/http"

	"github.com/taskfolio/taskfolio/pkg/httputil"
	"github.com/taskfolio/taskfolio/pkg/middleware"
	"github.com/taskfolio/taskfolio/pkg/projects"
	"github.com/taskfolio/taskfolio/pkg/team"
)

// createTask handles POST /api/v1/projects/{project_id}/tasks
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "project_id")
	if !ok {
		return
	}
	var req projects.CreateTaskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Title, "title") {
		return
	}

	task := &projects.Task{
		ProjectID:  projectID,
		Title:      req.Title,
		Notes:      req.Notes,
		AssignedTo: req.AssignedTo,
		DueDate:    req.DueDate,
		CreatedBy:  actx.UserID,
	}
	if err := s.store.CreateTask(task); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, task)
}

// listTasks handles GET /api/v1/projects/{project_id}/tasks
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "project_id")
	if !ok {
		return
	}

	tasks, err := s.store.ListTasks(actx.AccountID, projectID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, tasks)
}

// getTask handles GET /api/v1/tasks/{task_id}
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	taskID, ok := httputil.ParsePathInt64OrError(w, r, "task_id")
	if !ok {
		return
	}

	task, err := s.store.GetTask(actx.AccountID, taskID)
	if errors.Is(err, projects.ErrNotFound) {
		httputil.WriteNotFoundError(w, "task not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, task)
}

// updateTask handles PUT /api/v1/tasks/{task_id}
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	taskID, ok := httputil.ParsePathInt64OrError(w, r, "task_id")
	if !ok {
		return
	}
	var req projects.UpdateTaskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := s.store.UpdateTask(actx.AccountID, taskID, &req); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			httputil.WriteNotFoundError(w, "task not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	task, err := s.store.GetTask(actx.AccountID, taskID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, task)
}

// deleteTask handles DELETE /api/v1/tasks/{task_id}
func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	taskID, ok := httputil.ParsePathInt64OrError(w, r, "task_id")
	if !ok {
		return
	}

	if err := s.store.DeleteTask(actx.AccountID, taskID); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			httputil.WriteNotFoundError(w, "task not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type assignTaskRequest struct {
	// UserID is the assignee; null clears the assignment.
	UserID *int64 `json:"user_id"`
}

// assignTask handles PUT /api/v1/tasks/{task_id}/assignee. The assignee must
// be the account owner or an accepted member of the account.
func (s *Server) assignTask(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	taskID, ok := httputil.ParsePathInt64OrError(w, r, "task_id")
	if !ok {
		return
	}
	var req assignTaskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.UserID != nil && *req.UserID != actx.AccountID {
		if _, err := s.team.GetMember(actx.AccountID, *req.UserID); err != nil {
			if errors.Is(err, team.ErrNotFound) {
				httputil.WriteValidationError(w, "assignee is not a team member")
				return
			}
			httputil.WriteInternalError(w, err)
			return
		}
	}

	if err := s.store.AssignTask(actx.AccountID, taskID, req.UserID); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			httputil.WriteNotFoundError(w, "task not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	task, err := s.store.GetTask(actx.AccountID, taskID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, task)
}
