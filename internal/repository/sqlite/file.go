package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcastilho/clientdesk/pkg/models"
)

// File metadata methods; the bytes live in the external blob store.
func (r *SQLiteRepo) CreateFile(ctx context.Context, f *models.File) (int64, error) {
	if f == nil {
		return 0, fmt.Errorf("file is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO files (project_id, name, url, size, mime_type, created) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ProjectID, f.Name, f.URL, f.Size, f.MimeType, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetFileByID(ctx context.Context, id int64) (*models.File, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, project_id, name, url, size, mime_type, created FROM files WHERE id = ?`, id)
	var f models.File
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &f.URL, &f.Size, &f.MimeType, &f.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &f, nil
}

func (r *SQLiteRepo) ListFilesByProject(ctx context.Context, projectID int64) ([]models.File, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, project_id, name, url, size, mime_type, created FROM files WHERE project_id = ? ORDER BY created DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.URL, &f.Size, &f.MimeType, &f.Created); err != nil {
			return nil, err
		}

		out = append(out, f)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteFile(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM files WHERE id = ?`, id)
	return err
}
