package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/paygate"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

// Gateway is the slice of the payment client the invoice handlers need.
type Gateway interface {
	CreateOrder(ctx context.Context, reference string, amount int64, currency string) (*paygate.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paygate.Capture, error)
}

type InvoicesHandler struct {
	invoiceRepo repository.InvoiceRepo
	paymentRepo repository.PaymentRepo
	gateway     Gateway
}

func NewInvoicesHandler(ir repository.InvoiceRepo, pr repository.PaymentRepo, gw Gateway) *InvoicesHandler {
	return &InvoicesHandler{invoiceRepo: ir, paymentRepo: pr, gateway: gw}
}

type invoiceItemRequest struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Rate        int64  `json:"rate"`
}

type invoiceRequest struct {
	ClientID  int64                `json:"client_id"`
	ProjectID int64                `json:"project_id"`
	Date      int64                `json:"date"`
	DueDate   int64                `json:"due_date"`
	Items     []invoiceItemRequest `json:"items"`
}

type invoiceResponse struct {
	models.Invoice
	Items []models.InvoiceItem `json:"items,omitempty"`
}

var validInvoiceStatus = map[string]bool{
	models.InvoiceUnpaid:    true,
	models.InvoicePaid:      true,
	models.InvoiceOverdue:   true,
	models.InvoiceCancelled: true,
}

// newInvoiceNumber generates a unique human-quotable number.
func newInvoiceNumber() string {
	frag := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "INV-" + frag
}

func (h *InvoicesHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	invoices, err := h.invoiceRepo.ListInvoices(r.Context(), ident.scope())
	if err != nil {
		writeError(w, "failed to list invoices", http.StatusInternalServerError)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}

	writeJSON(w, invoices, http.StatusOK)
}

func (h *InvoicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	invoice, err := h.invoiceRepo.GetInvoiceByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get invoice", http.StatusInternalServerError)
		return
	}
	if invoice == nil {
		writeError(w, "invoice not found", http.StatusNotFound)
		return
	}
	if !ident.Can(CapReadAll) && invoice.ClientID != ident.UserID {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}

	items, err := h.invoiceRepo.ListInvoiceItems(ctx, id)
	if err != nil {
		writeError(w, "failed to get invoice items", http.StatusInternalServerError)
		return
	}

	writeJSON(w, invoiceResponse{Invoice: *invoice, Items: items}, http.StatusOK)
}

func (h *InvoicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ClientID <= 0 || req.ProjectID <= 0 || len(req.Items) == 0 {
		writeError(w, "missing fields", http.StatusBadRequest)
		return
	}
	for _, it := range req.Items {
		if it.Description == "" || it.Quantity <= 0 || it.Rate < 0 {
			writeError(w, "invalid invoice item", http.StatusBadRequest)
			return
		}
	}
	if req.Date == 0 {
		req.Date = time.Now().UTC().UnixMilli()
	}

	invoice := models.Invoice{
		Number:    newInvoiceNumber(),
		ClientID:  req.ClientID,
		ProjectID: req.ProjectID,
		Date:      req.Date,
		DueDate:   req.DueDate,
	}
	items := make([]models.InvoiceItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.InvoiceItem{Description: it.Description, Quantity: it.Quantity, Rate: it.Rate})
	}

	id, err := h.invoiceRepo.CreateInvoice(r.Context(), &invoice, items)
	if err != nil {
		writeError(w, "failed to create invoice", http.StatusInternalServerError)
		return
	}
	invoice.ID = id

	writeJSON(w, invoice, http.StatusCreated)
}

type invoiceStatusRequest struct {
	Status string `json:"status"`
}

func (h *InvoicesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req invoiceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !validInvoiceStatus[req.Status] {
		writeError(w, "invalid status", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	invoice, err := h.invoiceRepo.GetInvoiceByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get invoice", http.StatusInternalServerError)
		return
	}
	if invoice == nil {
		writeError(w, "invoice not found", http.StatusNotFound)
		return
	}

	if err := h.invoiceRepo.UpdateInvoiceStatus(ctx, id, req.Status); err != nil {
		writeError(w, "failed to update invoice", http.StatusInternalServerError)
		return
	}
	invoice.Status = req.Status

	writeJSON(w, invoice, http.StatusOK)
}

func (h *InvoicesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	invoice, err := h.invoiceRepo.GetInvoiceByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get invoice", http.StatusInternalServerError)
		return
	}
	if invoice == nil {
		writeError(w, "invoice not found", http.StatusNotFound)
		return
	}

	if err := h.invoiceRepo.DeleteInvoice(ctx, id); err != nil {
		writeError(w, "failed to delete invoice", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type checkoutResponse struct {
	OrderID     string `json:"order_id"`
	ApprovalURL string `json:"approval_url,omitempty"`
}

// Checkout registers a gateway order for an open invoice. The order id is
// stored on the invoice so a later capture can reference it.
func (h *InvoicesHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	invoice, err := h.invoiceRepo.GetInvoiceByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get invoice", http.StatusInternalServerError)
		return
	}
	if invoice == nil {
		writeError(w, "invoice not found", http.StatusNotFound)
		return
	}
	if !ident.Can(CapReadAll) && invoice.ClientID != ident.UserID {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}
	if invoice.Status != models.InvoiceUnpaid && invoice.Status != models.InvoiceOverdue {
		writeError(w, "invoice is not payable", http.StatusBadRequest)
		return
	}

	order, err := h.gateway.CreateOrder(ctx, invoice.Number, invoice.Amount, "USD")
	if err != nil {
		writeError(w, "payment gateway unavailable", http.StatusBadGateway)
		return
	}

	if err := h.invoiceRepo.SetInvoiceOrderID(ctx, id, order.ID); err != nil {
		writeError(w, "failed to record order", http.StatusInternalServerError)
		return
	}

	writeJSON(w, checkoutResponse{OrderID: order.ID, ApprovalURL: order.ApprovalURL}, http.StatusCreated)
}

// Capture captures the invoice's gateway order, then records the payment and
// marks the invoice paid in one transaction.
func (h *InvoicesHandler) Capture(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	invoice, err := h.invoiceRepo.GetInvoiceByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get invoice", http.StatusInternalServerError)
		return
	}
	if invoice == nil {
		writeError(w, "invoice not found", http.StatusNotFound)
		return
	}
	if !ident.Can(CapReadAll) && invoice.ClientID != ident.UserID {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}
	if invoice.OrderID == "" {
		writeError(w, "invoice has no pending order", http.StatusBadRequest)
		return
	}
	if invoice.Status == models.InvoicePaid {
		writeError(w, "invoice is already paid", http.StatusBadRequest)
		return
	}

	capture, err := h.gateway.CaptureOrder(ctx, invoice.OrderID)
	if err != nil {
		writeError(w, "payment gateway unavailable", http.StatusBadGateway)
		return
	}

	payment := models.Payment{
		InvoiceID: id,
		UserID:    invoice.ClientID,
		Amount:    invoice.Amount,
		Date:      time.Now().UTC().UnixMilli(),
		Method:    "gateway",
		TxRef:     capture.TxRef,
	}
	if _, err := h.paymentRepo.RecordCapture(ctx, &payment); err != nil {
		writeError(w, "failed to record payment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, payment, http.StatusCreated)
}
