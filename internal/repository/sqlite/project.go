package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcastilho/clientdesk/pkg/models"
)

// Project methods
func (r *SQLiteRepo) CreateProject(ctx context.Context, p *models.Project) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("project is nil")
	}
	if p.Status == "" {
		p.Status = models.ProjectActive
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO projects (name, client_id, status, start_date, end_date, updated) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.ClientID, p.Status, p.StartDate, p.EndDate, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetProjectByID(ctx context.Context, id int64) (*models.Project, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, client_id, status, start_date, end_date, updated FROM projects WHERE id = ?`, id)
	var p models.Project
	var end sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.ClientID, &p.Status, &p.StartDate, &end, &p.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if end.Valid {
		v := end.Int64
		p.EndDate = &v
	}

	return &p, nil
}

func (r *SQLiteRepo) ListProjects(ctx context.Context, clientID int64) ([]models.Project, error) {
	q := `SELECT id, name, client_id, status, start_date, end_date, updated FROM projects ORDER BY updated DESC`
	args := []any{}
	if clientID > 0 {
		q = `SELECT id, name, client_id, status, start_date, end_date, updated FROM projects WHERE client_id = ? ORDER BY updated DESC`
		args = append(args, clientID)
	}

	return r.queryProjects(ctx, q, args...)
}

func (r *SQLiteRepo) ListRecentProjects(ctx context.Context, clientID int64, limit int) ([]models.Project, error) {
	if limit <= 0 {
		limit = 10
	}

	q := `SELECT id, name, client_id, status, start_date, end_date, updated FROM projects ORDER BY updated DESC LIMIT ?`
	args := []any{limit}
	if clientID > 0 {
		q = `SELECT id, name, client_id, status, start_date, end_date, updated FROM projects WHERE client_id = ? ORDER BY updated DESC LIMIT ?`
		args = []any{clientID, limit}
	}

	return r.queryProjects(ctx, q, args...)
}

func (r *SQLiteRepo) queryProjects(ctx context.Context, q string, args ...any) ([]models.Project, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		var end sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.ClientID, &p.Status, &p.StartDate, &end, &p.Updated); err != nil {
			return nil, err
		}
		if end.Valid {
			v := end.Int64
			p.EndDate = &v
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateProject(ctx context.Context, p *models.Project) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}

	_, err := r.conn.Exec(ctx, `UPDATE projects SET name = ?, client_id = ?, status = ?, start_date = ?, end_date = ?, updated = ? WHERE id = ?`,
		p.Name, p.ClientID, p.Status, p.StartDate, p.EndDate, now(), p.ID)
	return err
}

func (r *SQLiteRepo) DeleteProject(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) CountProjectsByStatus(ctx context.Context, clientID int64, status string) (int64, error) {
	q := `SELECT COUNT(*) FROM projects WHERE status = ?`
	args := []any{status}
	if clientID > 0 {
		q += ` AND client_id = ?`
		args = append(args, clientID)
	}

	row := r.conn.QueryRow(ctx, q, args...)
	var cnt int64
	if err := row.Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}
