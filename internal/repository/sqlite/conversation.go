package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

// Conversation methods

// FindOrCreateConversation returns the conversation for projectID, creating it
// when absent. The unique index on project_id makes concurrent first use
// converge: the insert is conflict-tolerant and the follow-up select sees
// whichever row won.
func (r *SQLiteRepo) FindOrCreateConversation(ctx context.Context, projectID *int64) (*models.Conversation, error) {
	if projectID == nil {
		// general support threads are not deduplicated
		ts := now()
		res, err := r.conn.Exec(ctx, `INSERT INTO conversations (project_id, created, updated) VALUES (NULL, ?, ?)`, ts, ts)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return &models.Conversation{ID: id, Created: ts, Updated: ts}, nil
	}

	ts := now()
	if _, err := r.conn.Exec(ctx, `INSERT INTO conversations (project_id, created, updated) VALUES (?, ?, ?) ON CONFLICT(project_id) WHERE project_id IS NOT NULL DO NOTHING`, *projectID, ts, ts); err != nil {
		return nil, err
	}

	c, err := r.getConversationByProject(ctx, *projectID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("conversation for project %d missing after insert", *projectID)
	}

	return c, nil
}

func (r *SQLiteRepo) getConversationByProject(ctx context.Context, projectID int64) (*models.Conversation, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, project_id, created, updated FROM conversations WHERE project_id = ?`, projectID)
	return scanConversation(row)
}

func (r *SQLiteRepo) GetConversationByID(ctx context.Context, id int64) (*models.Conversation, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, project_id, created, updated FROM conversations WHERE id = ?`, id)
	return scanConversation(row)
}

func scanConversation(row *sql.Row) (*models.Conversation, error) {
	var c models.Conversation
	var pid sql.NullInt64
	if err := row.Scan(&c.ID, &pid, &c.Created, &c.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if pid.Valid {
		v := pid.Int64
		c.ProjectID = &v
	}

	return &c, nil
}

// ListConversations returns all conversations for admin (clientID 0) or those
// of the client's projects, most recently updated first.
func (r *SQLiteRepo) ListConversations(ctx context.Context, clientID int64) ([]models.Conversation, error) {
	q := `SELECT id, project_id, created, updated FROM conversations ORDER BY updated DESC`
	args := []any{}
	if clientID > 0 {
		q = `SELECT c.id, c.project_id, c.created, c.updated FROM conversations c JOIN projects p ON p.id = c.project_id WHERE p.client_id = ? ORDER BY c.updated DESC`
		args = append(args, clientID)
	}

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var c models.Conversation
		var pid sql.NullInt64
		if err := rows.Scan(&c.ID, &pid, &c.Created, &c.Updated); err != nil {
			return nil, err
		}
		if pid.Valid {
			v := pid.Int64
			c.ProjectID = &v
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

// CreateMessage appends a message with read=false and bumps the conversation's
// updated timestamp.
func (r *SQLiteRepo) CreateMessage(ctx context.Context, m *models.Message) (int64, error) {
	if m == nil {
		return 0, fmt.Errorf("message is nil")
	}
	if m.Created == 0 {
		m.Created = now()
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO messages (conversation_id, sender_id, content, read, created) VALUES (?, ?, ?, 0, ?)`,
		m.ConversationID, m.SenderID, m.Content, m.Created)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated = ? WHERE id = ?`, m.Created, m.ConversationID); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return id, nil
}

// ListMessages returns the conversation ascending by creation time with sender
// name and role joined in. Read flags are untouched; callers pair this with
// MarkReadUpTo.
func (r *SQLiteRepo) ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT m.id, m.conversation_id, m.sender_id, m.content, m.read, m.created, u.name, u.role
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ? ORDER BY m.created ASC, m.id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Read, &m.Created, &m.SenderName, &m.SenderRole); err != nil {
			return nil, err
		}

		out = append(out, m)
	}

	return out, rows.Err()
}

// MarkReadUpTo marks messages not sent by viewerID and created at or before
// upTo as read.
func (r *SQLiteRepo) MarkReadUpTo(ctx context.Context, conversationID, viewerID, upTo int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE messages SET read = 1 WHERE conversation_id = ? AND sender_id != ? AND created <= ? AND read = 0`,
		conversationID, viewerID, upTo)
	return err
}

func (r *SQLiteRepo) LatestMessage(ctx context.Context, conversationID int64) (*models.Message, error) {
	row := r.conn.QueryRow(ctx, `SELECT m.id, m.conversation_id, m.sender_id, m.content, m.read, m.created, u.name, u.role
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ? ORDER BY m.created DESC, m.id DESC LIMIT 1`, conversationID)
	var m models.Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Read, &m.Created, &m.SenderName, &m.SenderRole); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &m, nil
}

func (r *SQLiteRepo) CountUnread(ctx context.Context, conversationID, viewerID int64) (int64, error) {
	return r.scanCount(ctx, `SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND sender_id != ? AND read = 0`, conversationID, viewerID)
}

// UnreadByConversation groups the viewer's unread messages per conversation.
func (r *SQLiteRepo) UnreadByConversation(ctx context.Context, viewerID, clientID int64) ([]repository.UnreadDigest, error) {
	q := `SELECT m.conversation_id, c.project_id, COUNT(*), MAX(m.created)
		FROM messages m JOIN conversations c ON c.id = m.conversation_id
		WHERE m.sender_id != ? AND m.read = 0
		GROUP BY m.conversation_id ORDER BY MAX(m.created) DESC`
	args := []any{viewerID}
	if clientID > 0 {
		q = `SELECT m.conversation_id, c.project_id, COUNT(*), MAX(m.created)
			FROM messages m
			JOIN conversations c ON c.id = m.conversation_id
			JOIN projects p ON p.id = c.project_id
			WHERE p.client_id = ? AND m.sender_id != ? AND m.read = 0
			GROUP BY m.conversation_id ORDER BY MAX(m.created) DESC`
		args = []any{clientID, viewerID}
	}

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.UnreadDigest
	for rows.Next() {
		var d repository.UnreadDigest
		var pid sql.NullInt64
		if err := rows.Scan(&d.ConversationID, &pid, &d.Count, &d.Latest); err != nil {
			return nil, err
		}
		if pid.Valid {
			v := pid.Int64
			d.ProjectID = &v
		}

		out = append(out, d)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) ListRecentMessages(ctx context.Context, clientID int64, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 10
	}

	q := `SELECT m.id, m.conversation_id, m.sender_id, m.content, m.read, m.created, u.name, u.role
		FROM messages m JOIN users u ON u.id = m.sender_id
		ORDER BY m.created DESC LIMIT ?`
	args := []any{limit}
	if clientID > 0 {
		q = `SELECT m.id, m.conversation_id, m.sender_id, m.content, m.read, m.created, u.name, u.role
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			JOIN conversations c ON c.id = m.conversation_id
			JOIN projects p ON p.id = c.project_id
			WHERE p.client_id = ? ORDER BY m.created DESC LIMIT ?`
		args = []any{clientID, limit}
	}

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Read, &m.Created, &m.SenderName, &m.SenderRole); err != nil {
			return nil, err
		}

		out = append(out, m)
	}

	return out, rows.Err()
}
