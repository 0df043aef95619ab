package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcastilho/clientdesk/pkg/models"
)

// Testimonial methods
func (r *SQLiteRepo) CreateTestimonial(ctx context.Context, t *models.Testimonial) (int64, error) {
	if t == nil {
		return 0, fmt.Errorf("testimonial is nil")
	}
	if t.Rating < 1 || t.Rating > 5 {
		return 0, fmt.Errorf("rating must be between 1 and 5")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO testimonials (client_id, content, rating, position, company, is_active, ord) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ClientID, t.Content, t.Rating, t.Position, t.Company, t.IsActive, t.Ord)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetTestimonialByID(ctx context.Context, id int64) (*models.Testimonial, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, client_id, content, rating, position, company, is_active, ord FROM testimonials WHERE id = ?`, id)
	var t models.Testimonial
	var position, company sql.NullString
	if err := row.Scan(&t.ID, &t.ClientID, &t.Content, &t.Rating, &position, &company, &t.IsActive, &t.Ord); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if position.Valid {
		t.Position = position.String
	}
	if company.Valid {
		t.Company = company.String
	}

	return &t, nil
}

func (r *SQLiteRepo) ListTestimonials(ctx context.Context, activeOnly bool) ([]models.Testimonial, error) {
	q := `SELECT id, client_id, content, rating, position, company, is_active, ord FROM testimonials ORDER BY ord ASC, id ASC`
	if activeOnly {
		q = `SELECT id, client_id, content, rating, position, company, is_active, ord FROM testimonials WHERE is_active = 1 ORDER BY ord ASC, id ASC`
	}

	rows, err := r.conn.QueryRows(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Testimonial
	for rows.Next() {
		var t models.Testimonial
		var position, company sql.NullString
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Content, &t.Rating, &position, &company, &t.IsActive, &t.Ord); err != nil {
			return nil, err
		}
		if position.Valid {
			t.Position = position.String
		}
		if company.Valid {
			t.Company = company.String
		}

		out = append(out, t)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateTestimonial(ctx context.Context, t *models.Testimonial) error {
	if t == nil {
		return fmt.Errorf("testimonial is nil")
	}
	if t.Rating < 1 || t.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}

	_, err := r.conn.Exec(ctx, `UPDATE testimonials SET client_id = ?, content = ?, rating = ?, position = ?, company = ?, is_active = ?, ord = ? WHERE id = ?`,
		t.ClientID, t.Content, t.Rating, t.Position, t.Company, t.IsActive, t.Ord, t.ID)
	return err
}

func (r *SQLiteRepo) DeleteTestimonial(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM testimonials WHERE id = ?`, id)
	return err
}
