package projects

import (
	"errors"
	"time"
)

// Project represents a project owned by an account. The account id is the
// owning user's id and is fixed for the project's lifetime; ownership
// reassignment is not modeled.
type Project struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskStatus represents a task's workflow state.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task represents a task within a project. Tasks inherit their owning
// account from the parent project and may be assigned to a single user.
type Task struct {
	ID         int64      `json:"id"`
	ProjectID  int64      `json:"project_id"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes,omitempty"`
	Status     TaskStatus `json:"status"`
	AssignedTo *int64     `json:"assigned_to,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	CreatedBy  int64      `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CreateProjectRequest represents a request to create a project.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateProjectRequest represents a request to update a project.
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateTaskRequest represents a request to create a task.
type CreateTaskRequest struct {
	Title      string     `json:"title"`
	Notes      string     `json:"notes,omitempty"`
	AssignedTo *int64     `json:"assigned_to,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// UpdateTaskRequest represents a request to update a task.
type UpdateTaskRequest struct {
	Title   *string     `json:"title,omitempty"`
	Notes   *string     `json:"notes,omitempty"`
	Status  *TaskStatus `json:"status,omitempty"`
	DueDate *time.Time  `json:"due_date,omitempty"`
}

// ErrNotFound is returned when a project or task does not exist within the
// requested account scope.
var ErrNotFound = errors.New("resource not found")
