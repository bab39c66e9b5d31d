package projects

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taskfolio/taskfolio/pkg/authz"
)

// PostgresStore implements project and task storage backed by PostgreSQL.
// Every query is scoped by the owning account id resolved by the caller;
// the store never trusts a raw requester id for scoping.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new project store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const projectColumns = `id, account_id, name, description, created_by, created_at, updated_at`
const taskColumns = `id, project_id, title, notes, status, assigned_to, due_date, created_by, created_at, updated_at`

// CreateProject creates a project under the given account.
func (s *PostgresStore) CreateProject(project *Project) error {
	query := `
		INSERT INTO projects (account_id, name, description, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, project.AccountID, project.Name, project.Description, project.CreatedBy).
		Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project within an account scope.
func (s *PostgresStore) GetProject(accountID, projectID int64) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE account_id = $1 AND id = $2`
	project := &Project{}
	err := s.db.QueryRow(query, accountID, projectID).Scan(
		&project.ID, &project.AccountID, &project.Name, &project.Description,
		&project.CreatedBy, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// ListProjects lists every project in an account. Intended for owner and
// admin views.
func (s *PostgresStore) ListProjects(accountID int64) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE account_id = $1 ORDER BY created_at DESC`
	return s.queryProjects(query, accountID)
}

// ListProjectsForMember lists the projects inside an account that a member
// can see: those they are assigned to.
func (s *PostgresStore) ListProjectsForMember(accountID, userID int64) ([]*Project, error) {
	query := `
		SELECT p.id, p.account_id, p.name, p.description, p.created_by, p.created_at, p.updated_at
		FROM projects p
		JOIN project_assignments pa ON pa.project_id = p.id
		WHERE p.account_id = $1 AND pa.user_id = $2
		ORDER BY p.created_at DESC
	`
	return s.queryProjects(query, accountID, userID)
}

// UpdateProject applies a partial update within an account scope.
func (s *PostgresStore) UpdateProject(accountID, projectID int64, updates *UpdateProjectRequest) error {
	query := `
		UPDATE projects
		SET name = COALESCE($1, name), description = COALESCE($2, description), updated_at = NOW()
		WHERE account_id = $3 AND id = $4
	`
	result, err := s.db.Exec(query, updates.Name, updates.Description, accountID, projectID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireRow(result)
}

// DeleteProject removes a project and its tasks within an account scope.
func (s *PostgresStore) DeleteProject(accountID, projectID int64) error {
	result, err := s.db.Exec(`DELETE FROM projects WHERE account_id = $1 AND id = $2`, accountID, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireRow(result)
}

// AssignToProject records a project assignment for a user. Assignment is
// the member-level exception that grants access regardless of general role
// limits.
func (s *PostgresStore) AssignToProject(projectID, userID int64) error {
	query := `
		INSERT INTO project_assignments (project_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`
	if _, err := s.db.Exec(query, projectID, userID); err != nil {
		return fmt.Errorf("failed to assign to project: %w", err)
	}
	return nil
}

// UnassignFromProject removes a project assignment.
func (s *PostgresStore) UnassignFromProject(projectID, userID int64) error {
	query := `DELETE FROM project_assignments WHERE project_id = $1 AND user_id = $2`
	if _, err := s.db.Exec(query, projectID, userID); err != nil {
		return fmt.Errorf("failed to unassign from project: %w", err)
	}
	return nil
}

// CreateTask creates a task under a project.
func (s *PostgresStore) CreateTask(task *Task) error {
	if task.Status == "" {
		task.Status = TaskTodo
	}
	query := `
		INSERT INTO tasks (project_id, title, notes, status, assigned_to, due_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(query, task.ProjectID, task.Title, task.Notes, task.Status,
		task.AssignedTo, task.DueDate, task.CreatedBy).
		Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task, scoped through its parent project's account.
func (s *PostgresStore) GetTask(accountID, taskID int64) (*Task, error) {
	query := `
		SELECT t.id, t.project_id, t.title, t.notes, t.status, t.assigned_to, t.due_date,
		       t.created_by, t.created_at, t.updated_at
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE p.account_id = $1 AND t.id = $2
	`
	task, err := scanTask(s.db.QueryRow(query, accountID, taskID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks lists tasks for a project within an account scope.
func (s *PostgresStore) ListTasks(accountID, projectID int64) ([]*Task, error) {
	query := `
		SELECT t.id, t.project_id, t.title, t.notes, t.status, t.assigned_to, t.due_date,
		       t.created_by, t.created_at, t.updated_at
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE p.account_id = $1 AND t.project_id = $2
		ORDER BY t.created_at DESC
	`
	rows, err := s.db.Query(query, accountID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update, scoped through the parent project.
func (s *PostgresStore) UpdateTask(accountID, taskID int64, updates *UpdateTaskRequest) error {
	query := `
		UPDATE tasks t
		SET title = COALESCE($1, t.title), notes = COALESCE($2, t.notes),
		    status = COALESCE($3, t.status), due_date = COALESCE($4, t.due_date),
		    updated_at = NOW()
		FROM projects p
		WHERE p.id = t.project_id AND p.account_id = $5 AND t.id = $6
	`
	result, err := s.db.Exec(query, updates.Title, updates.Notes, updates.Status, updates.DueDate, accountID, taskID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireRow(result)
}

// AssignTask sets or clears a task's assignee.
func (s *PostgresStore) AssignTask(accountID, taskID int64, userID *int64) error {
	query := `
		UPDATE tasks t SET assigned_to = $1, updated_at = NOW()
		FROM projects p
		WHERE p.id = t.project_id AND p.account_id = $2 AND t.id = $3
	`
	result, err := s.db.Exec(query, userID, accountID, taskID)
	if err != nil {
		return fmt.Errorf("failed to assign task: %w", err)
	}
	return requireRow(result)
}

// DeleteTask removes a task within an account scope.
func (s *PostgresStore) DeleteTask(accountID, taskID int64) error {
	query := `
		DELETE FROM tasks t
		USING projects p
		WHERE p.id = t.project_id AND p.account_id = $1 AND t.id = $2
	`
	result, err := s.db.Exec(query, accountID, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireRow(result)
}

// ProjectFacts fetches the ownership and assignment facts the gate needs
// for a project decision. The assignment fact is evaluated for the given
// requester.
func (s *PostgresStore) ProjectFacts(ctx context.Context, projectID, requesterID int64) (authz.ResourceFacts, error) {
	var ownerAccountID int64
	var assigned bool
	query := `
		SELECT p.account_id,
		       EXISTS (SELECT 1 FROM project_assignments pa WHERE pa.project_id = p.id AND pa.user_id = $2)
		FROM projects p
		WHERE p.id = $1
	`
	err := s.db.QueryRowContext(ctx, query, projectID, requesterID).Scan(&ownerAccountID, &assigned)
	if err == sql.ErrNoRows {
		return authz.ResourceFacts{}, authz.ErrResourceNotFound
	}
	if err != nil {
		return authz.ResourceFacts{}, fmt.Errorf("failed to get project facts: %w", err)
	}

	facts := authz.ResourceFacts{Kind: authz.KindProject, OwnerAccountID: ownerAccountID}
	if assigned {
		facts.AssignedTo = &requesterID
	}
	return facts, nil
}

// TaskFacts fetches the facts for a task decision: the parent project's
// owning account and the task's own assignee.
func (s *PostgresStore) TaskFacts(ctx context.Context, taskID int64) (authz.ResourceFacts, error) {
	var ownerAccountID int64
	var assignedTo sql.NullInt64
	query := `
		SELECT p.account_id, t.assigned_to
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1
	`
	err := s.db.QueryRowContext(ctx, query, taskID).Scan(&ownerAccountID, &assignedTo)
	if err == sql.ErrNoRows {
		return authz.ResourceFacts{}, authz.ErrResourceNotFound
	}
	if err != nil {
		return authz.ResourceFacts{}, fmt.Errorf("failed to get task facts: %w", err)
	}

	facts := authz.ResourceFacts{Kind: authz.KindTask, OwnerAccountID: ownerAccountID}
	if assignedTo.Valid {
		facts.AssignedTo = &assignedTo.Int64
	}
	return facts, nil
}

// OwnsAnyResource implements the ownership-heuristic half of
// authz.FactSource: whether the user owns at least one project under their
// own account.
func (s *PostgresStore) OwnsAnyResource(ctx context.Context, userID int64) (bool, error) {
	var owns bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE account_id = $1)`, userID,
	).Scan(&owns)
	if err != nil {
		return false, fmt.Errorf("failed to check project ownership: %w", err)
	}
	return owns, nil
}

func (s *PostgresStore) queryProjects(query string, args ...interface{}) ([]*Project, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var result []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(
			&project.ID, &project.AccountID, &project.Name, &project.Description,
			&project.CreatedBy, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		result = append(result, project)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(scanner rowScanner) (*Task, error) {
	task := &Task{}
	var assignedTo sql.NullInt64
	var dueDate sql.NullTime

	err := scanner.Scan(
		&task.ID, &task.ProjectID, &task.Title, &task.Notes, &task.Status,
		&assignedTo, &dueDate, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		task.AssignedTo = &assignedTo.Int64
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	return task, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
