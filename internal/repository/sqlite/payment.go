package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcastilho/clientdesk/pkg/models"
)

// Payment methods
func (r *SQLiteRepo) CreatePayment(ctx context.Context, p *models.Payment) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("payment is nil")
	}
	if p.Date == 0 {
		p.Date = now()
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO payments (invoice_id, user_id, amount, date, method, tx_ref) VALUES (?, ?, ?, ?, ?, ?)`,
		p.InvoiceID, p.UserID, p.Amount, p.Date, p.Method, p.TxRef)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// RecordCapture inserts the payment and marks its invoice PAID atomically.
// The gateway has already captured funds when this runs, so the two writes
// must land together.
func (r *SQLiteRepo) RecordCapture(ctx context.Context, p *models.Payment) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("payment is nil")
	}
	if p.Date == 0 {
		p.Date = now()
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO payments (invoice_id, user_id, amount, date, method, tx_ref) VALUES (?, ?, ?, ?, ?, ?)`,
		p.InvoiceID, p.UserID, p.Amount, p.Date, p.Method, p.TxRef)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE invoices SET status = ? WHERE id = ?`, models.InvoicePaid, p.InvoiceID); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return id, nil
}

func (r *SQLiteRepo) ListPaymentsByInvoice(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	return r.queryPayments(ctx, `SELECT id, invoice_id, user_id, amount, date, method, tx_ref FROM payments WHERE invoice_id = ? ORDER BY date DESC`, invoiceID)
}

// SumPaymentsBetween sums payment amounts with from <= date < to.
func (r *SQLiteRepo) SumPaymentsBetween(ctx context.Context, from, to int64) (int64, error) {
	return r.scanCount(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE date >= ? AND date < ?`, from, to)
}

func (r *SQLiteRepo) SumPaymentsByClient(ctx context.Context, clientID int64) (int64, error) {
	return r.scanCount(ctx, `SELECT COALESCE(SUM(p.amount), 0) FROM payments p JOIN invoices i ON i.id = p.invoice_id WHERE i.client_id = ?`, clientID)
}

func (r *SQLiteRepo) ListRecentPayments(ctx context.Context, clientID int64, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 10
	}

	if clientID > 0 {
		return r.queryPayments(ctx, `SELECT p.id, p.invoice_id, p.user_id, p.amount, p.date, p.method, p.tx_ref FROM payments p JOIN invoices i ON i.id = p.invoice_id WHERE i.client_id = ? ORDER BY p.date DESC LIMIT ?`, clientID, limit)
	}

	return r.queryPayments(ctx, `SELECT id, invoice_id, user_id, amount, date, method, tx_ref FROM payments ORDER BY date DESC LIMIT ?`, limit)
}

func (r *SQLiteRepo) queryPayments(ctx context.Context, q string, args ...any) ([]models.Payment, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		var txRef sql.NullString
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.UserID, &p.Amount, &p.Date, &p.Method, &txRef); err != nil {
			return nil, err
		}
		if txRef.Valid {
			p.TxRef = txRef.String
		}

		out = append(out, p)
	}

	return out, rows.Err()
}
