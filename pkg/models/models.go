package models

// Domain models matching the database schema in db/migrations/0001_init.sql.
// All timestamps are unix milliseconds (UTC); money amounts are cents.

// User roles.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// Project statuses.
const (
	ProjectActive    = "ACTIVE"
	ProjectCompleted = "COMPLETED"
	ProjectOnHold    = "ON_HOLD"
	ProjectCancelled = "CANCELLED"
)

// Task statuses and priorities.
const (
	TaskTodo       = "TODO"
	TaskInProgress = "IN_PROGRESS"
	TaskReview     = "REVIEW"
	TaskCompleted  = "COMPLETED"

	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Invoice statuses.
const (
	InvoiceUnpaid    = "UNPAID"
	InvoicePaid      = "PAID"
	InvoiceOverdue   = "OVERDUE"
	InvoiceCancelled = "CANCELLED"
)

type User struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name" validate:"required"`
	Email        string `json:"email" db:"email" validate:"required,email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
	Company      string `json:"company,omitempty" db:"company"`
	Phone        string `json:"phone,omitempty" db:"phone"`
	Created      int64  `json:"created" db:"created"`
}

type Project struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name" validate:"required"`
	ClientID  int64  `json:"client_id" db:"client_id"`
	Status    string `json:"status" db:"status"`
	StartDate int64  `json:"start_date" db:"start_date"`
	EndDate   *int64 `json:"end_date,omitempty" db:"end_date"`
	Updated   int64  `json:"updated" db:"updated"`
}

type Task struct {
	ID           int64  `json:"id" db:"id"`
	Title        string `json:"title" db:"title" validate:"required"`
	Description  string `json:"description,omitempty" db:"description"`
	ProjectID    int64  `json:"project_id" db:"project_id"`
	Priority     string `json:"priority" db:"priority"`
	Status       string `json:"status" db:"status"`
	DueDate      int64  `json:"due_date" db:"due_date"`
	AssignedToID *int64 `json:"assigned_to_id,omitempty" db:"assigned_to_id"`
	Updated      int64  `json:"updated" db:"updated"`
}

type Invoice struct {
	ID        int64  `json:"id" db:"id"`
	Number    string `json:"number" db:"number"`
	ClientID  int64  `json:"client_id" db:"client_id"`
	ProjectID int64  `json:"project_id" db:"project_id"`
	// Amount is fixed at creation time as the sum of item quantity*rate.
	Amount  int64  `json:"amount" db:"amount"`
	Status  string `json:"status" db:"status"`
	Date    int64  `json:"date" db:"date"`
	DueDate int64  `json:"due_date" db:"due_date"`
	OrderID string `json:"order_id,omitempty" db:"order_id"`
}

type InvoiceItem struct {
	ID          int64  `json:"id" db:"id"`
	InvoiceID   int64  `json:"invoice_id" db:"invoice_id"`
	Description string `json:"description" db:"description"`
	Quantity    int64  `json:"quantity" db:"quantity"`
	Rate        int64  `json:"rate" db:"rate"`
}

type Payment struct {
	ID        int64  `json:"id" db:"id"`
	InvoiceID int64  `json:"invoice_id" db:"invoice_id"`
	UserID    int64  `json:"user_id" db:"user_id"`
	Amount    int64  `json:"amount" db:"amount"`
	Date      int64  `json:"date" db:"date"`
	Method    string `json:"method" db:"method"`
	TxRef     string `json:"transaction_reference,omitempty" db:"tx_ref"`
}

// Conversation groups the messages of one project. ProjectID is nil for a
// general support thread. At most one conversation exists per project,
// enforced by a unique index.
type Conversation struct {
	ID        int64  `json:"id" db:"id"`
	ProjectID *int64 `json:"project_id,omitempty" db:"project_id"`
	Created   int64  `json:"created" db:"created"`
	Updated   int64  `json:"updated" db:"updated"`
}

// Message is append-only; only the Read flag is ever mutated.
type Message struct {
	ID             int64  `json:"id" db:"id"`
	ConversationID int64  `json:"conversation_id" db:"conversation_id"`
	SenderID       int64  `json:"sender_id" db:"sender_id"`
	Content        string `json:"content" db:"content"`
	Read           bool   `json:"read" db:"read"`
	Created        int64  `json:"created" db:"created"`
	// Denormalized for display; populated by joins, not stored.
	SenderName string `json:"sender_name,omitempty" db:"-"`
	SenderRole string `json:"sender_role,omitempty" db:"-"`
}

type ContactMessage struct {
	ID      int64  `json:"id" db:"id"`
	Name    string `json:"name" db:"name" validate:"required"`
	Email   string `json:"email" db:"email" validate:"required,email"`
	Message string `json:"message" db:"message" validate:"required"`
	UserID  *int64 `json:"user_id,omitempty" db:"user_id"`
	Read    bool   `json:"read" db:"read"`
	Created int64  `json:"created" db:"created"`
}

type Testimonial struct {
	ID       int64  `json:"id" db:"id"`
	ClientID int64  `json:"client_id" db:"client_id"`
	Content  string `json:"content" db:"content"`
	Rating   int    `json:"rating" db:"rating"`
	Position string `json:"position,omitempty" db:"position"`
	Company  string `json:"company,omitempty" db:"company"`
	IsActive bool   `json:"is_active" db:"is_active"`
	Ord      int    `json:"order" db:"ord"`
}

// File holds blob metadata only; the bytes live in the external storage
// service that produced the URL.
type File struct {
	ID        int64  `json:"id" db:"id"`
	ProjectID int64  `json:"project_id" db:"project_id"`
	Name      string `json:"name" db:"name"`
	URL       string `json:"url" db:"url"`
	Size      int64  `json:"size" db:"size"`
	MimeType  string `json:"mime_type" db:"mime_type"`
	Created   int64  `json:"created" db:"created"`
}
