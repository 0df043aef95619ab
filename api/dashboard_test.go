package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func TestAdminStatsRoute(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	custToken, custID := env.signupCustomer(t, "c1@example.com")
	createProject(t, env, adminToken, custID)

	status, body := env.do(t, http.MethodGet, "/v1/admin/dashboard/stats", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("admin stats returned %d: %s", status, body)
	}
	var stats struct {
		TotalCustomers int64 `json:"total_customers"`
		ActiveProjects int64 `json:"active_projects"`
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalCustomers != 1 || stats.ActiveProjects != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	status, _ = env.do(t, http.MethodGet, "/v1/admin/dashboard/stats", custToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("customer on admin stats: expected 403 got %d", status)
	}
}

func TestCustomerStatsRoute(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	custToken, custID := env.signupCustomer(t, "c1@example.com")
	createProject(t, env, adminToken, custID)

	status, body := env.do(t, http.MethodGet, "/v1/dashboard/customer/stats", custToken, nil)
	if status != http.StatusOK {
		t.Fatalf("customer stats returned %d: %s", status, body)
	}
	var stats struct {
		ActiveProjects int64 `json:"active_projects"`
		UnpaidInvoices int64 `json:"unpaid_invoices"`
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.ActiveProjects != 1 || stats.UnpaidInvoices != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestActivitiesRouteScopingAndLimit(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	custToken, custID := env.signupCustomer(t, "c1@example.com")
	otherToken, otherID := env.signupCustomer(t, "c2@example.com")
	createProject(t, env, adminToken, custID)
	createProject(t, env, adminToken, otherID)

	fetch := func(token, query string) []map[string]any {
		t.Helper()
		status, body := env.do(t, http.MethodGet, "/v1/dashboard/activities"+query, token, nil)
		if status != http.StatusOK {
			t.Fatalf("activities returned %d: %s", status, body)
		}
		var items []map[string]any
		if err := json.Unmarshal(body, &items); err != nil {
			t.Fatalf("decode activities: %v", err)
		}
		return items
	}

	if got := fetch(adminToken, ""); len(got) != 2 {
		t.Fatalf("admin sees %d activities, expected 2", len(got))
	}
	if got := fetch(custToken, ""); len(got) != 1 {
		t.Fatalf("customer sees %d activities, expected 1", len(got))
	}
	if got := fetch(otherToken, "?limit=1"); len(got) != 1 {
		t.Fatalf("limit=1 returned %d items", len(got))
	}

	// out-of-range limits fall back to the default
	if got := fetch(custToken, "?limit=0"); len(got) != 1 {
		t.Fatalf("limit=0 fallback returned %d items", len(got))
	}
	if got := fetch(custToken, "?limit=500"); len(got) != 1 {
		t.Fatalf("limit=500 fallback returned %d items", len(got))
	}
}

func TestNotificationsRoute(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	custToken, custID := env.signupCustomer(t, "c1@example.com")
	p := createProject(t, env, adminToken, custID)
	createInvoice(t, env, adminToken, custID, p.ID)

	status, body := env.do(t, http.MethodGet, "/v1/dashboard/customer/notifications", custToken, nil)
	if status != http.StatusOK {
		t.Fatalf("notifications returned %d: %s", status, body)
	}
	var items []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if len(items) != 1 || items[0].Type != "invoice" {
		t.Fatalf("unexpected feed: %s", body)
	}
	want := fmt.Sprintf("Invoice %s is awaiting payment", invoiceNumberFromFeed(t, env, custToken))
	if items[0].Message != want {
		t.Fatalf("message %q, want %q", items[0].Message, want)
	}

	// the feed is a customer surface; admins have no "own" data to report
	status, _ = env.do(t, http.MethodGet, "/v1/dashboard/customer/notifications", adminToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("admin notifications: expected 403 got %d", status)
	}
}

// invoiceNumberFromFeed reads back the customer's single invoice number.
func invoiceNumberFromFeed(t *testing.T, env *testEnv, custToken string) string {
	t.Helper()
	status, body := env.do(t, http.MethodGet, "/v1/invoices", custToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list invoices returned %d: %s", status, body)
	}
	var invs []struct {
		Number string `json:"number"`
	}
	if err := json.Unmarshal(body, &invs); err != nil {
		t.Fatalf("decode invoices: %v", err)
	}
	if len(invs) != 1 {
		t.Fatalf("expected 1 invoice got %d", len(invs))
	}
	return invs[0].Number
}
