// Package dashboard computes role-scoped statistics and the recent-activity
// feed. Everything here is a pure read over the repositories; results are
// recomputed per request and never persisted.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

type Service struct {
	users    repository.UserRepo
	projects repository.ProjectRepo
	tasks    repository.TaskRepo
	invoices repository.InvoiceRepo
	payments repository.PaymentRepo
	contacts repository.ContactRepo
	convs    repository.ConversationRepo
}

func NewService(
	users repository.UserRepo,
	projects repository.ProjectRepo,
	tasks repository.TaskRepo,
	invoices repository.InvoiceRepo,
	payments repository.PaymentRepo,
	contacts repository.ContactRepo,
	convs repository.ConversationRepo,
) *Service {
	return &Service{
		users:    users,
		projects: projects,
		tasks:    tasks,
		invoices: invoices,
		payments: payments,
		contacts: contacts,
		convs:    convs,
	}
}

type AdminStats struct {
	TotalCustomers    int64 `json:"total_customers"`
	ActiveProjects    int64 `json:"active_projects"`
	CompletedProjects int64 `json:"completed_projects"`
	CompletedTasks    int64 `json:"completed_tasks"`
	PendingTasks      int64 `json:"pending_tasks"`
	OpenInquiries     int64 `json:"open_inquiries"`
	MonthlyRevenue    int64 `json:"monthly_revenue"`
}

type CustomerStats struct {
	ActiveProjects    int64  `json:"active_projects"`
	CompletedProjects int64  `json:"completed_projects"`
	CompletedTasks    int64  `json:"completed_tasks"`
	PendingTasks      int64  `json:"pending_tasks"`
	TotalInvoices     int64  `json:"total_invoices"`
	UnpaidInvoices    int64  `json:"unpaid_invoices"`
	TotalInvoiced     int64  `json:"total_invoiced"`
	TotalPaid         int64  `json:"total_paid"`
	NextDeadline      *int64 `json:"next_deadline,omitempty"`
}

// monthWindow returns [start, next) of now's calendar month in unix millis.
// The half-open interval puts the first instant of the next month outside the
// window while keeping the last millisecond of this one inside.
func monthWindow(now time.Time) (int64, int64) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := start.AddDate(0, 1, 0)
	return start.UnixMilli(), next.UnixMilli()
}

// AdminStats aggregates portal-wide counters plus current-calendar-month
// revenue. Missing rows yield zeroes, not errors.
func (s *Service) AdminStats(ctx context.Context, now time.Time) (*AdminStats, error) {
	out := &AdminStats{}

	var err error
	if out.TotalCustomers, err = s.users.CountUsersByRole(ctx, models.RoleCustomer); err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}
	if out.ActiveProjects, err = s.projects.CountProjectsByStatus(ctx, 0, models.ProjectActive); err != nil {
		return nil, fmt.Errorf("count active projects: %w", err)
	}
	if out.CompletedProjects, err = s.projects.CountProjectsByStatus(ctx, 0, models.ProjectCompleted); err != nil {
		return nil, fmt.Errorf("count completed projects: %w", err)
	}
	if out.CompletedTasks, err = s.tasks.CountTasks(ctx, 0, true); err != nil {
		return nil, fmt.Errorf("count completed tasks: %w", err)
	}
	if out.PendingTasks, err = s.tasks.CountTasks(ctx, 0, false); err != nil {
		return nil, fmt.Errorf("count pending tasks: %w", err)
	}
	if out.OpenInquiries, err = s.contacts.CountUnreadContacts(ctx); err != nil {
		return nil, fmt.Errorf("count open inquiries: %w", err)
	}

	from, to := monthWindow(now)
	if out.MonthlyRevenue, err = s.payments.SumPaymentsBetween(ctx, from, to); err != nil {
		return nil, fmt.Errorf("sum monthly revenue: %w", err)
	}

	return out, nil
}

// CustomerStats aggregates one client's projects, tasks and invoices, plus the
// earliest future due date among their non-completed tasks.
func (s *Service) CustomerStats(ctx context.Context, clientID int64, now time.Time) (*CustomerStats, error) {
	if clientID <= 0 {
		return nil, fmt.Errorf("invalid client id %d", clientID)
	}

	out := &CustomerStats{}

	var err error
	if out.ActiveProjects, err = s.projects.CountProjectsByStatus(ctx, clientID, models.ProjectActive); err != nil {
		return nil, fmt.Errorf("count active projects: %w", err)
	}
	if out.CompletedProjects, err = s.projects.CountProjectsByStatus(ctx, clientID, models.ProjectCompleted); err != nil {
		return nil, fmt.Errorf("count completed projects: %w", err)
	}
	if out.CompletedTasks, err = s.tasks.CountTasks(ctx, clientID, true); err != nil {
		return nil, fmt.Errorf("count completed tasks: %w", err)
	}
	if out.PendingTasks, err = s.tasks.CountTasks(ctx, clientID, false); err != nil {
		return nil, fmt.Errorf("count pending tasks: %w", err)
	}
	if out.TotalInvoices, err = s.invoices.CountInvoices(ctx, clientID); err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}

	unpaid, err := s.invoices.CountInvoicesByStatus(ctx, clientID, models.InvoiceUnpaid)
	if err != nil {
		return nil, fmt.Errorf("count unpaid invoices: %w", err)
	}
	overdue, err := s.invoices.CountInvoicesByStatus(ctx, clientID, models.InvoiceOverdue)
	if err != nil {
		return nil, fmt.Errorf("count overdue invoices: %w", err)
	}
	out.UnpaidInvoices = unpaid + overdue

	if out.TotalInvoiced, err = s.invoices.SumInvoiceAmounts(ctx, clientID); err != nil {
		return nil, fmt.Errorf("sum invoiced: %w", err)
	}
	if out.TotalPaid, err = s.payments.SumPaymentsByClient(ctx, clientID); err != nil {
		return nil, fmt.Errorf("sum paid: %w", err)
	}
	if out.NextDeadline, err = s.tasks.NextDueDate(ctx, clientID, now.UTC().UnixMilli()); err != nil {
		return nil, fmt.Errorf("next deadline: %w", err)
	}

	return out, nil
}
