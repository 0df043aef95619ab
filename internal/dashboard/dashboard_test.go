package dashboard_test

import (
	"context"
	"testing"
	"time"

	dbfs "github.com/mcastilho/clientdesk/db"
	"github.com/mcastilho/clientdesk/internal/dashboard"
	dbpkg "github.com/mcastilho/clientdesk/internal/db"
	sqlite "github.com/mcastilho/clientdesk/internal/repository/sqlite"
	"github.com/mcastilho/clientdesk/pkg/models"
)

func setupService(t *testing.T) (*dashboard.Service, *sqlite.SQLiteRepo, func()) {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		d.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := sqlite.New(d, nil)
	svc := dashboard.NewService(repo, repo, repo, repo, repo, repo, repo)
	return svc, repo, func() { d.Close() }
}

func seedCustomer(t *testing.T, repo *sqlite.SQLiteRepo, email string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), &models.User{Name: "Client", Email: email, PasswordHash: "h", Role: models.RoleCustomer})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	return id
}

func TestAdminStatsMonthBoundary(t *testing.T) {
	svc, repo, cleanup := setupService(t)
	defer cleanup()
	ctx := context.Background()

	client := seedCustomer(t, repo, "c1@example.com")
	pid, err := repo.CreateProject(ctx, &models.Project{Name: "Site", ClientID: client, Status: models.ProjectActive, StartDate: 1})
	if err != nil {
		t.Fatalf("CreateProject error: %v", err)
	}
	invID, err := repo.CreateInvoice(ctx, &models.Invoice{Number: "INV-1", ClientID: client, ProjectID: pid, Date: 1, DueDate: 2},
		[]models.InvoiceItem{{Description: "w", Quantity: 1, Rate: 100000}})
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}

	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	lastInstant := time.Date(2025, time.March, 31, 23, 59, 59, 999000000, time.UTC)
	nextFirst := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	prevLast := time.Date(2025, time.February, 28, 23, 59, 59, 999000000, time.UTC)

	pay := func(amount int64, at time.Time) {
		if _, err := repo.CreatePayment(ctx, &models.Payment{InvoiceID: invID, UserID: client, Amount: amount, Date: at.UnixMilli(), Method: "paypal"}); err != nil {
			t.Fatalf("CreatePayment error: %v", err)
		}
	}
	pay(100, lastInstant) // included: last millisecond of March
	pay(200, nextFirst)   // excluded: first instant of April
	pay(400, prevLast)    // excluded: February
	pay(800, now)         // included

	stats, err := svc.AdminStats(ctx, now)
	if err != nil {
		t.Fatalf("AdminStats error: %v", err)
	}
	if stats.MonthlyRevenue != 900 {
		t.Fatalf("expected monthly revenue 900 got %d", stats.MonthlyRevenue)
	}
	if stats.TotalCustomers != 1 {
		t.Fatalf("expected 1 customer got %d", stats.TotalCustomers)
	}
	if stats.ActiveProjects != 1 {
		t.Fatalf("expected 1 active project got %d", stats.ActiveProjects)
	}
}

func TestAdminStatsZeroDefaults(t *testing.T) {
	svc, _, cleanup := setupService(t)
	defer cleanup()

	stats, err := svc.AdminStats(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("AdminStats error: %v", err)
	}
	if stats.TotalCustomers != 0 || stats.MonthlyRevenue != 0 || stats.PendingTasks != 0 {
		t.Fatalf("expected zeroed stats got %#v", stats)
	}
}

func TestCustomerStatsInvariants(t *testing.T) {
	svc, repo, cleanup := setupService(t)
	defer cleanup()
	ctx := context.Background()

	client := seedCustomer(t, repo, "c2@example.com")
	other := seedCustomer(t, repo, "c3@example.com")

	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	nowMs := now.UnixMilli()

	mkProject := func(clientID int64, status string) int64 {
		id, err := repo.CreateProject(ctx, &models.Project{Name: "P", ClientID: clientID, Status: status, StartDate: 1})
		if err != nil {
			t.Fatalf("CreateProject error: %v", err)
		}
		return id
	}
	p1 := mkProject(client, models.ProjectActive)
	p2 := mkProject(client, models.ProjectActive)
	mkProject(other, models.ProjectActive)

	mkTask := func(pid int64, status string, due int64) {
		if _, err := repo.CreateTask(ctx, &models.Task{Title: "t", ProjectID: pid, Status: status, DueDate: due}); err != nil {
			t.Fatalf("CreateTask error: %v", err)
		}
	}
	mkTask(p1, models.TaskCompleted, nowMs-1000)
	mkTask(p1, models.TaskCompleted, nowMs-1000)
	mkTask(p2, models.TaskCompleted, nowMs-1000)
	mkTask(p1, models.TaskTodo, nowMs+5000)
	mkTask(p2, models.TaskInProgress, nowMs+2000)

	mkInvoice := func(number, status string, due int64) {
		inv := &models.Invoice{Number: number, ClientID: client, ProjectID: p1, Status: status, Date: 1, DueDate: due}
		if _, err := repo.CreateInvoice(ctx, inv, []models.InvoiceItem{{Description: "w", Quantity: 1, Rate: 100}}); err != nil {
			t.Fatalf("CreateInvoice error: %v", err)
		}
	}
	mkInvoice("INV-1", models.InvoiceUnpaid, nowMs+100)
	mkInvoice("INV-2", models.InvoiceOverdue, nowMs-100)
	mkInvoice("INV-3", models.InvoicePaid, nowMs-200)

	stats, err := svc.CustomerStats(ctx, client, now)
	if err != nil {
		t.Fatalf("CustomerStats error: %v", err)
	}

	if stats.ActiveProjects != 2 {
		t.Fatalf("expected 2 active projects got %d", stats.ActiveProjects)
	}
	if stats.CompletedTasks != 3 || stats.PendingTasks != 2 {
		t.Fatalf("expected 3 completed / 2 pending got %d / %d", stats.CompletedTasks, stats.PendingTasks)
	}
	if stats.UnpaidInvoices > stats.TotalInvoices {
		t.Fatalf("unpaid (%d) must not exceed total (%d)", stats.UnpaidInvoices, stats.TotalInvoices)
	}
	if stats.TotalInvoices != 3 || stats.UnpaidInvoices != 2 {
		t.Fatalf("expected 3 total / 2 unpaid got %d / %d", stats.TotalInvoices, stats.UnpaidInvoices)
	}

	// completed + pending equals all tasks across the client's projects
	all, err := repo.ListTasksByClient(ctx, client)
	if err != nil {
		t.Fatalf("ListTasksByClient error: %v", err)
	}
	if stats.CompletedTasks+stats.PendingTasks != int64(len(all)) {
		t.Fatalf("completed+pending (%d) != all tasks (%d)", stats.CompletedTasks+stats.PendingTasks, len(all))
	}

	// next deadline is the earliest future non-completed due date
	if stats.NextDeadline == nil || *stats.NextDeadline != nowMs+2000 {
		t.Fatalf("expected next deadline %d got %v", nowMs+2000, stats.NextDeadline)
	}

	if _, err := svc.CustomerStats(ctx, 0, now); err == nil {
		t.Fatalf("expected error for invalid client id")
	}
}

func TestRecentActivityPhrasesAndOrder(t *testing.T) {
	svc, repo, cleanup := setupService(t)
	defer cleanup()
	ctx := context.Background()

	client := seedCustomer(t, repo, "c4@example.com")
	pid, err := repo.CreateProject(ctx, &models.Project{Name: "Relaunch", ClientID: client, Status: models.ProjectOnHold, StartDate: 1})
	if err != nil {
		t.Fatalf("CreateProject error: %v", err)
	}
	taskID, err := repo.CreateTask(ctx, &models.Task{Title: "Deploy", ProjectID: pid, Status: models.TaskCompleted, DueDate: 1})
	if err != nil {
		t.Fatalf("CreateTask error: %v", err)
	}
	_ = taskID

	if _, err := repo.CreateContactMessage(ctx, &models.ContactMessage{Name: "Visitor", Email: "v@example.com", Message: "hi"}); err != nil {
		t.Fatalf("CreateContactMessage error: %v", err)
	}

	feed, err := svc.RecentActivity(ctx, 0, 10)
	if err != nil {
		t.Fatalf("RecentActivity error: %v", err)
	}
	if len(feed) < 3 {
		t.Fatalf("expected at least 3 entries got %d", len(feed))
	}

	// descending timestamps
	for i := 1; i < len(feed); i++ {
		if feed[i-1].Timestamp < feed[i].Timestamp {
			t.Fatalf("feed not descending at %d", i)
		}
	}

	want := map[string]string{
		"task":    `Task "Deploy" was completed`,
		"project": `Project "Relaunch" was put on hold`,
		"contact": "New inquiry from Visitor",
	}
	for _, e := range feed {
		if expect, ok := want[e.Type]; ok {
			if e.Description != expect {
				t.Fatalf("type %s: expected %q got %q", e.Type, expect, e.Description)
			}
			delete(want, e.Type)
		}
	}
	if len(want) != 0 {
		t.Fatalf("missing feed entries for: %v", want)
	}

	// customer scope drops the contact entry
	mine, err := svc.RecentActivity(ctx, client, 10)
	if err != nil {
		t.Fatalf("RecentActivity customer error: %v", err)
	}
	for _, e := range mine {
		if e.Type == "contact" {
			t.Fatalf("customer feed must not include contact entries")
		}
	}

	// limit truncates
	one, err := svc.RecentActivity(ctx, 0, 1)
	if err != nil {
		t.Fatalf("RecentActivity limit error: %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("expected 1 entry got %d", len(one))
	}
}
