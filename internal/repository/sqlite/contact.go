package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcastilho/clientdesk/pkg/models"
)

// ContactMessage methods
func (r *SQLiteRepo) CreateContactMessage(ctx context.Context, c *models.ContactMessage) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("contact message is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO contact_messages (name, email, message, user_id, read, created) VALUES (?, ?, ?, ?, 0, ?)`,
		c.Name, c.Email, c.Message, c.UserID, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetContactMessageByID(ctx context.Context, id int64) (*models.ContactMessage, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, email, message, user_id, read, created FROM contact_messages WHERE id = ?`, id)
	var c models.ContactMessage
	var uid sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &uid, &c.Read, &c.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if uid.Valid {
		v := uid.Int64
		c.UserID = &v
	}

	return &c, nil
}

func (r *SQLiteRepo) ListContactMessages(ctx context.Context) ([]models.ContactMessage, error) {
	return r.queryContacts(ctx, `SELECT id, name, email, message, user_id, read, created FROM contact_messages ORDER BY created DESC`)
}

func (r *SQLiteRepo) ListRecentContacts(ctx context.Context, limit int) ([]models.ContactMessage, error) {
	if limit <= 0 {
		limit = 10
	}

	return r.queryContacts(ctx, `SELECT id, name, email, message, user_id, read, created FROM contact_messages ORDER BY created DESC LIMIT ?`, limit)
}

func (r *SQLiteRepo) queryContacts(ctx context.Context, q string, args ...any) ([]models.ContactMessage, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ContactMessage
	for rows.Next() {
		var c models.ContactMessage
		var uid sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &uid, &c.Read, &c.Created); err != nil {
			return nil, err
		}
		if uid.Valid {
			v := uid.Int64
			c.UserID = &v
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) MarkContactRead(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE contact_messages SET read = 1 WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) DeleteContactMessage(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM contact_messages WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) CountUnreadContacts(ctx context.Context) (int64, error) {
	return r.scanCount(ctx, `SELECT COUNT(*) FROM contact_messages WHERE read = 0`)
}
