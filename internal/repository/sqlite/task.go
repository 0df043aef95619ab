package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcastilho/clientdesk/pkg/models"
)

const taskCols = `id, title, description, project_id, priority, status, due_date, assigned_to_id, updated`

// Task methods
func (r *SQLiteRepo) CreateTask(ctx context.Context, t *models.Task) (int64, error) {
	if t == nil {
		return 0, fmt.Errorf("task is nil")
	}
	if t.Status == "" {
		t.Status = models.TaskTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO tasks (title, description, project_id, priority, status, due_date, assigned_to_id, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, t.ProjectID, t.Priority, t.Status, t.DueDate, t.AssignedToID, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	var t models.Task
	var desc sql.NullString
	var assignee sql.NullInt64
	if err := row.Scan(&t.ID, &t.Title, &desc, &t.ProjectID, &t.Priority, &t.Status, &t.DueDate, &assignee, &t.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if desc.Valid {
		t.Description = desc.String
	}
	if assignee.Valid {
		v := assignee.Int64
		t.AssignedToID = &v
	}

	return &t, nil
}

func (r *SQLiteRepo) ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskCols+` FROM tasks WHERE project_id = ? ORDER BY due_date ASC`, projectID)
}

func (r *SQLiteRepo) ListTasksByClient(ctx context.Context, clientID int64) ([]models.Task, error) {
	return r.queryTasks(ctx, `SELECT t.`+taskColsPrefixed+` FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.client_id = ? ORDER BY t.due_date ASC`, clientID)
}

func (r *SQLiteRepo) ListRecentTasks(ctx context.Context, clientID int64, limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = 10
	}

	if clientID > 0 {
		return r.queryTasks(ctx, `SELECT t.`+taskColsPrefixed+` FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.client_id = ? ORDER BY t.updated DESC LIMIT ?`, clientID, limit)
	}

	return r.queryTasks(ctx, `SELECT `+taskCols+` FROM tasks ORDER BY updated DESC LIMIT ?`, limit)
}

func (r *SQLiteRepo) ListTasksDueBetween(ctx context.Context, clientID, from, to int64) ([]models.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks WHERE status != ? AND due_date >= ? AND due_date <= ? ORDER BY due_date ASC`
	args := []any{models.TaskCompleted, from, to}
	if clientID > 0 {
		q = `SELECT t.` + taskColsPrefixed + ` FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.client_id = ? AND t.status != ? AND t.due_date >= ? AND t.due_date <= ? ORDER BY t.due_date ASC`
		args = []any{clientID, models.TaskCompleted, from, to}
	}

	return r.queryTasks(ctx, q, args...)
}

const taskColsPrefixed = `id, t.title, t.description, t.project_id, t.priority, t.status, t.due_date, t.assigned_to_id, t.updated`

func (r *SQLiteRepo) queryTasks(ctx context.Context, q string, args ...any) ([]models.Task, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		var t models.Task
		var desc sql.NullString
		var assignee sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &desc, &t.ProjectID, &t.Priority, &t.Status, &t.DueDate, &assignee, &t.Updated); err != nil {
			return nil, err
		}
		if desc.Valid {
			t.Description = desc.String
		}
		if assignee.Valid {
			v := assignee.Int64
			t.AssignedToID = &v
		}

		out = append(out, t)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateTask(ctx context.Context, t *models.Task) error {
	if t == nil {
		return fmt.Errorf("task is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE tasks SET title = ?, description = ?, project_id = ?, priority = ?, status = ?, due_date = ?, assigned_to_id = ?, updated = ? WHERE id = ?`,
		t.Title, t.Description, t.ProjectID, t.Priority, t.Status, t.DueDate, t.AssignedToID, now(), t.ID)
	return err
}

func (r *SQLiteRepo) DeleteTask(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) CountTasks(ctx context.Context, clientID int64, completed bool) (int64, error) {
	op := "!="
	if completed {
		op = "="
	}

	q := `SELECT COUNT(*) FROM tasks WHERE status ` + op + ` ?`
	args := []any{models.TaskCompleted}
	if clientID > 0 {
		q = `SELECT COUNT(*) FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.client_id = ? AND t.status ` + op + ` ?`
		args = []any{clientID, models.TaskCompleted}
	}

	row := r.conn.QueryRow(ctx, q, args...)
	var cnt int64
	if err := row.Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *SQLiteRepo) NextDueDate(ctx context.Context, clientID, after int64) (*int64, error) {
	q := `SELECT MIN(due_date) FROM tasks WHERE status != ? AND due_date > ?`
	args := []any{models.TaskCompleted, after}
	if clientID > 0 {
		q = `SELECT MIN(t.due_date) FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.client_id = ? AND t.status != ? AND t.due_date > ?`
		args = []any{clientID, models.TaskCompleted, after}
	}

	row := r.conn.QueryRow(ctx, q, args...)
	var due sql.NullInt64
	if err := row.Scan(&due); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if !due.Valid {
		return nil, nil
	}
	v := due.Int64
	return &v, nil
}
