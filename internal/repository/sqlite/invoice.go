package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcastilho/clientdesk/pkg/models"
)

const invoiceCols = `id, number, client_id, project_id, amount, status, date, due_date, order_id`

// Invoice methods

// CreateInvoice persists the invoice and its items in one transaction. The
// stored amount is the sum of item quantity*rate at creation time; it is not
// re-derived afterwards.
func (r *SQLiteRepo) CreateInvoice(ctx context.Context, inv *models.Invoice, items []models.InvoiceItem) (int64, error) {
	if inv == nil {
		return 0, fmt.Errorf("invoice is nil")
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("invoice needs at least one item")
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceUnpaid
	}

	var amount int64
	for _, it := range items {
		amount += it.Quantity * it.Rate
	}
	inv.Amount = amount

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO invoices (number, client_id, project_id, amount, status, date, due_date, order_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number, inv.ClientID, inv.ProjectID, inv.Amount, inv.Status, inv.Date, inv.DueDate, inv.OrderID)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `INSERT INTO invoice_items (invoice_id, description, quantity, rate) VALUES (?, ?, ?, ?)`,
			id, it.Description, it.Quantity, it.Rate); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return id, nil
}

func (r *SQLiteRepo) GetInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoices WHERE id = ?`, id)
	var inv models.Invoice
	var orderID sql.NullString
	if err := row.Scan(&inv.ID, &inv.Number, &inv.ClientID, &inv.ProjectID, &inv.Amount, &inv.Status, &inv.Date, &inv.DueDate, &orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if orderID.Valid {
		inv.OrderID = orderID.String
	}

	return &inv, nil
}

func (r *SQLiteRepo) ListInvoices(ctx context.Context, clientID int64) ([]models.Invoice, error) {
	q := `SELECT ` + invoiceCols + ` FROM invoices ORDER BY date DESC`
	args := []any{}
	if clientID > 0 {
		q = `SELECT ` + invoiceCols + ` FROM invoices WHERE client_id = ? ORDER BY date DESC`
		args = append(args, clientID)
	}

	return r.queryInvoices(ctx, q, args...)
}

// ListOpenInvoices returns UNPAID and OVERDUE invoices ascending by due date.
func (r *SQLiteRepo) ListOpenInvoices(ctx context.Context, clientID int64) ([]models.Invoice, error) {
	q := `SELECT ` + invoiceCols + ` FROM invoices WHERE status IN (?, ?) ORDER BY due_date ASC`
	args := []any{models.InvoiceUnpaid, models.InvoiceOverdue}
	if clientID > 0 {
		q = `SELECT ` + invoiceCols + ` FROM invoices WHERE client_id = ? AND status IN (?, ?) ORDER BY due_date ASC`
		args = []any{clientID, models.InvoiceUnpaid, models.InvoiceOverdue}
	}

	return r.queryInvoices(ctx, q, args...)
}

func (r *SQLiteRepo) queryInvoices(ctx context.Context, q string, args ...any) ([]models.Invoice, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		var orderID sql.NullString
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.ClientID, &inv.ProjectID, &inv.Amount, &inv.Status, &inv.Date, &inv.DueDate, &orderID); err != nil {
			return nil, err
		}
		if orderID.Valid {
			inv.OrderID = orderID.String
		}

		out = append(out, inv)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) ListInvoiceItems(ctx context.Context, invoiceID int64) ([]models.InvoiceItem, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, invoice_id, description, quantity, rate FROM invoice_items WHERE invoice_id = ? ORDER BY id ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InvoiceItem
	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.Rate); err != nil {
			return nil, err
		}

		out = append(out, it)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateInvoiceStatus(ctx context.Context, id int64, status string) error {
	_, err := r.conn.Exec(ctx, `UPDATE invoices SET status = ? WHERE id = ?`, status, id)
	return err
}

func (r *SQLiteRepo) SetInvoiceOrderID(ctx context.Context, id int64, orderID string) error {
	_, err := r.conn.Exec(ctx, `UPDATE invoices SET order_id = ? WHERE id = ?`, orderID, id)
	return err
}

func (r *SQLiteRepo) DeleteInvoice(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) CountInvoices(ctx context.Context, clientID int64) (int64, error) {
	q := `SELECT COUNT(*) FROM invoices`
	args := []any{}
	if clientID > 0 {
		q += ` WHERE client_id = ?`
		args = append(args, clientID)
	}

	return r.scanCount(ctx, q, args...)
}

func (r *SQLiteRepo) CountInvoicesByStatus(ctx context.Context, clientID int64, status string) (int64, error) {
	q := `SELECT COUNT(*) FROM invoices WHERE status = ?`
	args := []any{status}
	if clientID > 0 {
		q += ` AND client_id = ?`
		args = append(args, clientID)
	}

	return r.scanCount(ctx, q, args...)
}

func (r *SQLiteRepo) SumInvoiceAmounts(ctx context.Context, clientID int64) (int64, error) {
	q := `SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status != ?`
	args := []any{models.InvoiceCancelled}
	if clientID > 0 {
		q += ` AND client_id = ?`
		args = append(args, clientID)
	}

	return r.scanCount(ctx, q, args...)
}

// MarkOverdue flips UNPAID invoices past their due date to OVERDUE.
func (r *SQLiteRepo) MarkOverdue(ctx context.Context, now int64) (int64, error) {
	res, err := r.conn.Exec(ctx, `UPDATE invoices SET status = ? WHERE status = ? AND due_date < ?`,
		models.InvoiceOverdue, models.InvoiceUnpaid, now)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *SQLiteRepo) scanCount(ctx context.Context, q string, args ...any) (int64, error) {
	row := r.conn.QueryRow(ctx, q, args...)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
