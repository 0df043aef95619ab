package repository

import (
	"context"

	"github.com/mcastilho/clientdesk/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
//
// Listing methods that take a clientID treat 0 as "all clients" so the same
// query serves the admin and the customer scope.

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role string) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	CountUsersByRole(ctx context.Context, role string) (int64, error)
}

type ProjectRepo interface {
	CreateProject(ctx context.Context, p *models.Project) (int64, error)
	GetProjectByID(ctx context.Context, id int64) (*models.Project, error)
	ListProjects(ctx context.Context, clientID int64) ([]models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id int64) error
	CountProjectsByStatus(ctx context.Context, clientID int64, status string) (int64, error)
	ListRecentProjects(ctx context.Context, clientID int64, limit int) ([]models.Project, error)
}

type TaskRepo interface {
	CreateTask(ctx context.Context, t *models.Task) (int64, error)
	GetTaskByID(ctx context.Context, id int64) (*models.Task, error)
	ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error)
	ListTasksByClient(ctx context.Context, clientID int64) ([]models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id int64) error
	// CountTasks counts a client's tasks, completed or pending (not completed).
	CountTasks(ctx context.Context, clientID int64, completed bool) (int64, error)
	// NextDueDate returns the earliest due date after `after` among the
	// client's non-completed tasks, or nil when there is none.
	NextDueDate(ctx context.Context, clientID, after int64) (*int64, error)
	ListTasksDueBetween(ctx context.Context, clientID, from, to int64) ([]models.Task, error)
	ListRecentTasks(ctx context.Context, clientID int64, limit int) ([]models.Task, error)
}

type InvoiceRepo interface {
	// CreateInvoice persists the invoice and its items in one transaction and
	// fixes Amount to the sum of item quantity*rate.
	CreateInvoice(ctx context.Context, inv *models.Invoice, items []models.InvoiceItem) (int64, error)
	GetInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error)
	ListInvoices(ctx context.Context, clientID int64) ([]models.Invoice, error)
	ListInvoiceItems(ctx context.Context, invoiceID int64) ([]models.InvoiceItem, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, status string) error
	SetInvoiceOrderID(ctx context.Context, id int64, orderID string) error
	DeleteInvoice(ctx context.Context, id int64) error
	CountInvoices(ctx context.Context, clientID int64) (int64, error)
	CountInvoicesByStatus(ctx context.Context, clientID int64, status string) (int64, error)
	SumInvoiceAmounts(ctx context.Context, clientID int64) (int64, error)
	// ListOpenInvoices returns UNPAID and OVERDUE invoices for a client.
	ListOpenInvoices(ctx context.Context, clientID int64) ([]models.Invoice, error)
	// MarkOverdue flips UNPAID invoices with due_date < now to OVERDUE and
	// reports how many rows changed.
	MarkOverdue(ctx context.Context, now int64) (int64, error)
}

type PaymentRepo interface {
	CreatePayment(ctx context.Context, p *models.Payment) (int64, error)
	// RecordCapture inserts the payment and marks its invoice PAID in a single
	// transaction.
	RecordCapture(ctx context.Context, p *models.Payment) (int64, error)
	ListPaymentsByInvoice(ctx context.Context, invoiceID int64) ([]models.Payment, error)
	SumPaymentsBetween(ctx context.Context, from, to int64) (int64, error)
	SumPaymentsByClient(ctx context.Context, clientID int64) (int64, error)
	ListRecentPayments(ctx context.Context, clientID int64, limit int) ([]models.Payment, error)
}

// UnreadDigest summarizes the unread messages of one conversation for a viewer.
type UnreadDigest struct {
	ConversationID int64  `json:"conversation_id"`
	ProjectID      *int64 `json:"project_id,omitempty"`
	Count          int64  `json:"count"`
	Latest         int64  `json:"latest"`
}

type ConversationRepo interface {
	// FindOrCreateConversation returns the project's conversation, creating it
	// when absent. Uniqueness is enforced by the storage layer, so concurrent
	// first use converges on one row.
	FindOrCreateConversation(ctx context.Context, projectID *int64) (*models.Conversation, error)
	GetConversationByID(ctx context.Context, id int64) (*models.Conversation, error)
	ListConversations(ctx context.Context, clientID int64) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, m *models.Message) (int64, error)
	// ListMessages returns the conversation ascending by creation time with
	// sender name/role denormalized. It does not touch read flags; callers
	// pair it with MarkReadUpTo.
	ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error)
	// MarkReadUpTo marks messages not sent by viewerID and created at or
	// before upTo as read.
	MarkReadUpTo(ctx context.Context, conversationID, viewerID, upTo int64) error
	LatestMessage(ctx context.Context, conversationID int64) (*models.Message, error)
	CountUnread(ctx context.Context, conversationID, viewerID int64) (int64, error)
	// UnreadByConversation groups a viewer's unread messages per conversation,
	// restricted to the client's projects when clientID > 0.
	UnreadByConversation(ctx context.Context, viewerID, clientID int64) ([]UnreadDigest, error)
	ListRecentMessages(ctx context.Context, clientID int64, limit int) ([]models.Message, error)
}

type ContactRepo interface {
	CreateContactMessage(ctx context.Context, c *models.ContactMessage) (int64, error)
	GetContactMessageByID(ctx context.Context, id int64) (*models.ContactMessage, error)
	ListContactMessages(ctx context.Context) ([]models.ContactMessage, error)
	MarkContactRead(ctx context.Context, id int64) error
	DeleteContactMessage(ctx context.Context, id int64) error
	CountUnreadContacts(ctx context.Context) (int64, error)
	ListRecentContacts(ctx context.Context, limit int) ([]models.ContactMessage, error)
}

type TestimonialRepo interface {
	CreateTestimonial(ctx context.Context, t *models.Testimonial) (int64, error)
	GetTestimonialByID(ctx context.Context, id int64) (*models.Testimonial, error)
	// ListTestimonials returns rows ordered by the display sort key; when
	// activeOnly is set, inactive rows are skipped.
	ListTestimonials(ctx context.Context, activeOnly bool) ([]models.Testimonial, error)
	UpdateTestimonial(ctx context.Context, t *models.Testimonial) error
	DeleteTestimonial(ctx context.Context, id int64) error
}

type FileRepo interface {
	CreateFile(ctx context.Context, f *models.File) (int64, error)
	GetFileByID(ctx context.Context, id int64) (*models.File, error)
	ListFilesByProject(ctx context.Context, projectID int64) ([]models.File, error)
	DeleteFile(ctx context.Context, id int64) error
}
