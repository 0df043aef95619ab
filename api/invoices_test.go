package api_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/mcastilho/clientdesk/pkg/models"
)

func createInvoice(t *testing.T, env *testEnv, adminToken string, clientID, projectID int64) models.Invoice {
	t.Helper()
	status, body := env.do(t, http.MethodPost, "/v1/admin/invoices", adminToken, map[string]any{
		"client_id": clientID, "project_id": projectID, "due_date": 9999999999999,
		"items": []map[string]any{
			{"description": "Design", "quantity": 10, "rate": 5000},
			{"description": "Development", "quantity": 30, "rate": 1000},
		},
	})
	if status != http.StatusCreated {
		t.Fatalf("create invoice returned %d: %s", status, body)
	}
	var inv models.Invoice
	if err := json.Unmarshal(body, &inv); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	return inv
}

func TestInvoiceCreateDerivesAmountAndNumber(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	_, custID := env.signupCustomer(t, "c1@example.com")
	p := createProject(t, env, adminToken, custID)

	inv := createInvoice(t, env, adminToken, custID, p.ID)
	if inv.Amount != 80000 {
		t.Fatalf("expected amount 80000 got %d", inv.Amount)
	}
	if !strings.HasPrefix(inv.Number, "INV-") || len(inv.Number) != 12 {
		t.Fatalf("unexpected invoice number %q", inv.Number)
	}
	if inv.Status != models.InvoiceUnpaid {
		t.Fatalf("expected UNPAID got %q", inv.Status)
	}

	// a second invoice gets a different number
	inv2 := createInvoice(t, env, adminToken, custID, p.ID)
	if inv2.Number == inv.Number {
		t.Fatalf("invoice numbers must be unique, got %q twice", inv.Number)
	}

	// empty items are rejected
	status, _ := env.do(t, http.MethodPost, "/v1/admin/invoices", adminToken, map[string]any{
		"client_id": custID, "project_id": p.ID, "items": []map[string]any{},
	})
	if status != http.StatusBadRequest {
		t.Fatalf("empty items: expected 400 got %d", status)
	}
}

func TestInvoiceGetIncludesItemsAndScoping(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	custToken, custID := env.signupCustomer(t, "c1@example.com")
	otherToken, _ := env.signupCustomer(t, "c2@example.com")
	p := createProject(t, env, adminToken, custID)
	inv := createInvoice(t, env, adminToken, custID, p.ID)

	status, body := env.do(t, http.MethodGet, fmt.Sprintf("/v1/invoices/%d", inv.ID), custToken, nil)
	if status != http.StatusOK {
		t.Fatalf("owner get returned %d: %s", status, body)
	}
	var got struct {
		models.Invoice
		Items []models.InvoiceItem `json:"items"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items got %d", len(got.Items))
	}

	status, _ = env.do(t, http.MethodGet, fmt.Sprintf("/v1/invoices/%d", inv.ID), otherToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("stranger get: expected 403 got %d", status)
	}
}

func TestCheckoutAndCaptureFlow(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	custToken, custID := env.signupCustomer(t, "c1@example.com")
	p := createProject(t, env, adminToken, custID)
	inv := createInvoice(t, env, adminToken, custID, p.ID)

	// capture before checkout has no order to capture
	status, _ := env.do(t, http.MethodPost, fmt.Sprintf("/v1/invoices/%d/capture", inv.ID), custToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("capture without order: expected 400 got %d", status)
	}

	status, body := env.do(t, http.MethodPost, fmt.Sprintf("/v1/invoices/%d/checkout", inv.ID), custToken, nil)
	if status != http.StatusCreated {
		t.Fatalf("checkout returned %d: %s", status, body)
	}
	var checkout struct {
		OrderID     string `json:"order_id"`
		ApprovalURL string `json:"approval_url"`
	}
	if err := json.Unmarshal(body, &checkout); err != nil {
		t.Fatalf("decode checkout: %v", err)
	}
	if checkout.OrderID == "" || checkout.ApprovalURL == "" {
		t.Fatalf("unexpected checkout response: %#v", checkout)
	}

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/v1/invoices/%d/capture", inv.ID), custToken, nil)
	if status != http.StatusCreated {
		t.Fatalf("capture returned %d: %s", status, body)
	}
	var payment models.Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		t.Fatalf("decode payment: %v", err)
	}
	if payment.Amount != inv.Amount || payment.TxRef == "" {
		t.Fatalf("unexpected payment: %#v", payment)
	}

	// invoice is now PAID and cannot be captured again
	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/invoices/%d", inv.ID), custToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get invoice returned %d", status)
	}
	var after models.Invoice
	if err := json.Unmarshal(body, &after); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	if after.Status != models.InvoicePaid {
		t.Fatalf("expected PAID got %q", after.Status)
	}
	status, _ = env.do(t, http.MethodPost, fmt.Sprintf("/v1/invoices/%d/capture", inv.ID), custToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("double capture: expected 400 got %d", status)
	}

	// a paid invoice is no longer checkout-able
	status, _ = env.do(t, http.MethodPost, fmt.Sprintf("/v1/invoices/%d/checkout", inv.ID), custToken, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("checkout on paid: expected 400 got %d", status)
	}
}

func TestCheckoutGatewayDown(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	custToken, custID := env.signupCustomer(t, "c1@example.com")
	p := createProject(t, env, adminToken, custID)
	inv := createInvoice(t, env, adminToken, custID, p.ID)

	env.gateway.createErr = errors.New("connection refused")
	status, body := env.do(t, http.MethodPost, fmt.Sprintf("/v1/invoices/%d/checkout", inv.ID), custToken, nil)
	if status != http.StatusBadGateway {
		t.Fatalf("gateway down: expected 502 got %d: %s", status, body)
	}

	// the invoice keeps no order id from the failed attempt
	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/v1/invoices/%d", inv.ID), custToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get invoice returned %d", status)
	}
	var after models.Invoice
	if err := json.Unmarshal(body, &after); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	if after.OrderID != "" {
		t.Fatalf("order id recorded despite gateway failure: %q", after.OrderID)
	}
}

func TestInvoiceStatusUpdate(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	_, custID := env.signupCustomer(t, "c1@example.com")
	p := createProject(t, env, adminToken, custID)
	inv := createInvoice(t, env, adminToken, custID, p.ID)

	status, body := env.do(t, http.MethodPut, fmt.Sprintf("/v1/admin/invoices/%d/status", inv.ID), adminToken, map[string]string{
		"status": models.InvoiceCancelled,
	})
	if status != http.StatusOK {
		t.Fatalf("update status returned %d: %s", status, body)
	}
	var after models.Invoice
	if err := json.Unmarshal(body, &after); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	if after.Status != models.InvoiceCancelled {
		t.Fatalf("expected CANCELLED got %q", after.Status)
	}

	status, _ = env.do(t, http.MethodPut, fmt.Sprintf("/v1/admin/invoices/%d/status", inv.ID), adminToken, map[string]string{
		"status": "SHREDDED",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("bogus status: expected 400 got %d", status)
	}
}
