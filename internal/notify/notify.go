// Package notify synthesizes the customer notification feed from unread
// messages, near-due tasks, and open invoices. The feed is never persisted;
// it is recomputed on every call.
package notify

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

// Notification types.
const (
	TypeMessage = "message"
	TypeTask    = "task"
	TypeInvoice = "invoice"
)

// Per-source caps.
const (
	maxConversations = 5
	maxTasks         = 5
	maxInvoices      = 3
)

// dueWindow is how far ahead task reminders look.
const dueWindow = 7 * 24 * time.Hour

type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Time    int64  `json:"time"`
	RefID   int64  `json:"ref_id"`
}

type Service struct {
	convs    repository.ConversationRepo
	tasks    repository.TaskRepo
	invoices repository.InvoiceRepo
}

func NewService(convs repository.ConversationRepo, tasks repository.TaskRepo, invoices repository.InvoiceRepo) *Service {
	return &Service{convs: convs, tasks: tasks, invoices: invoices}
}

// ForCustomer builds the notification feed for one customer.
//
// The combined feed sorts descending on each entry's time field: latest
// message time for conversations, the synthesis instant for task reminders,
// and the due date for invoices. Invoice entries are then re-partitioned in
// the slots they occupy so that overdue invoices always precede unpaid ones,
// each group ascending by due date. The partition is deliberate product
// behavior, not a sort-key accident.
func (s *Service) ForCustomer(ctx context.Context, customerID int64, now time.Time) ([]Notification, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("invalid customer id %d", customerID)
	}

	nowMs := now.UTC().UnixMilli()
	var out []Notification

	digests, err := s.convs.UnreadByConversation(ctx, customerID, customerID)
	if err != nil {
		return nil, fmt.Errorf("unread digests: %w", err)
	}
	if len(digests) > maxConversations {
		digests = digests[:maxConversations]
	}
	for _, d := range digests {
		msg := fmt.Sprintf("You have %d new messages", d.Count)
		if d.Count == 1 {
			msg = "You have 1 new message"
		}
		out = append(out, Notification{Type: TypeMessage, Message: msg, Time: d.Latest, RefID: d.ConversationID})
	}

	tasks, err := s.tasks.ListTasksDueBetween(ctx, customerID, nowMs, now.Add(dueWindow).UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("due tasks: %w", err)
	}
	if len(tasks) > maxTasks {
		tasks = tasks[:maxTasks]
	}
	for _, t := range tasks {
		out = append(out, Notification{
			Type:    TypeTask,
			Message: fmt.Sprintf("Task %q is %s", t.Title, duePhrase(nowMs, t.DueDate)),
			Time:    nowMs,
			RefID:   t.ID,
		})
	}

	invoices := s.openInvoiceNotifications(ctx, customerID)
	if invoices.err != nil {
		return nil, invoices.err
	}
	out = append(out, invoices.items...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time > out[j].Time })

	// restore the invoice partition in whatever slots invoice entries landed
	k := 0
	for i := range out {
		if out[i].Type == TypeInvoice {
			out[i] = invoices.items[k]
			k++
		}
	}

	if out == nil {
		out = []Notification{}
	}

	return out, nil
}

type invoiceNotifications struct {
	items []Notification
	err   error
}

// openInvoiceNotifications returns invoice entries already partitioned:
// overdue before unpaid, each ascending by due date, capped at maxInvoices.
func (s *Service) openInvoiceNotifications(ctx context.Context, customerID int64) invoiceNotifications {
	open, err := s.invoices.ListOpenInvoices(ctx, customerID)
	if err != nil {
		return invoiceNotifications{err: fmt.Errorf("open invoices: %w", err)}
	}

	var overdue, unpaid []models.Invoice
	for _, inv := range open {
		if inv.Status == models.InvoiceOverdue {
			overdue = append(overdue, inv)
		} else {
			unpaid = append(unpaid, inv)
		}
	}

	var items []Notification
	for _, inv := range append(overdue, unpaid...) {
		if len(items) == maxInvoices {
			break
		}
		msg := fmt.Sprintf("Invoice %s is awaiting payment", inv.Number)
		if inv.Status == models.InvoiceOverdue {
			msg = fmt.Sprintf("Invoice %s is overdue", inv.Number)
		}
		items = append(items, Notification{Type: TypeInvoice, Message: msg, Time: inv.DueDate, RefID: inv.ID})
	}

	return invoiceNotifications{items: items}
}

// duePhrase renders a due date relative to now: "due today", "due tomorrow",
// or "due in N days". Both instants are unix millis.
func duePhrase(nowMs, dueMs int64) string {
	nowDay := time.UnixMilli(nowMs).UTC().Truncate(24 * time.Hour)
	dueDay := time.UnixMilli(dueMs).UTC().Truncate(24 * time.Hour)
	days := int(dueDay.Sub(nowDay) / (24 * time.Hour))

	switch {
	case days <= 0:
		return "due today"
	case days == 1:
		return "due tomorrow"
	default:
		return fmt.Sprintf("due in %d days", days)
	}
}
