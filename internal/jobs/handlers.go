package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcastilho/clientdesk/pkg/repository"
)

// ContactPayload is the body of a contact.received job.
type ContactPayload struct {
	ContactID int64 `json:"contact_id"`
}

// sweepInterval is how often the overdue sweep reschedules itself.
const sweepInterval = time.Hour

// NewMarkOverdueHandler returns the handler for invoices.mark_overdue: flip
// every past-due UNPAID invoice to OVERDUE, then enqueue the next sweep one
// interval out. The job is its own scheduler; there is no external cron.
func NewMarkOverdueHandler(invoices repository.InvoiceRepo, repo *Repository, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, j *Job) error {
		n, err := invoices.MarkOverdue(ctx, time.Now().UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("mark overdue: %w", err)
		}
		if n > 0 {
			logger.Info("invoices marked overdue", "count", n)
		}

		next := &Job{
			Type:        TypeMarkOverdue,
			Payload:     json.RawMessage(`{}`),
			ScheduledAt: time.Now().Add(sweepInterval).UTC().UnixMilli(),
		}
		if _, err := repo.Enqueue(ctx, next); err != nil {
			return fmt.Errorf("reschedule sweep: %w", err)
		}

		return nil
	}
}

// NewContactReceivedHandler returns the handler for contact.received: look up
// the inquiry and surface it to the operator log. Delivery channels beyond the
// log (mail, chat) plug in here.
func NewContactReceivedHandler(contacts repository.ContactRepo, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, j *Job) error {
		var p ContactPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}

		msg, err := contacts.GetContactMessageByID(ctx, p.ContactID)
		if err != nil {
			return fmt.Errorf("load contact message: %w", err)
		}
		if msg == nil {
			// already deleted; nothing to announce
			return nil
		}

		logger.Info("new contact inquiry", "id", msg.ID, "name", msg.Name, "email", msg.Email)
		return nil
	}
}
