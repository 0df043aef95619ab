package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	_ "embed"

	"github.com/qri-io/jsonschema"

	"github.com/mcastilho/clientdesk/internal/jobs"
	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

//go:embed contact_schema.json
var contactSchemaJSON []byte

// Enqueuer is the slice of the worker pool the contact handler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority, maxAttempts int) (int64, error)
}

type ContactHandler struct {
	contactRepo repository.ContactRepo
	queue       Enqueuer
	schema      *jsonschema.Schema
}

func NewContactHandler(cr repository.ContactRepo, queue Enqueuer) (*ContactHandler, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(contactSchemaJSON, rs); err != nil {
		return nil, err
	}
	return &ContactHandler{contactRepo: cr, queue: queue, schema: rs}, nil
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	UserID  *int64 `json:"user_id,omitempty"`
}

// Submit is the public portfolio contact form. The payload is validated
// against the embedded JSON schema before anything touches the database.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	keyErrs, err := h.schema.ValidateBytes(ctx, body)
	if err != nil {
		writeError(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(keyErrs) > 0 {
		writeError(w, keyErrs[0].Message, http.StatusBadRequest)
		return
	}

	var req contactRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, "invalid json", http.StatusBadRequest)
		return
	}

	msg := models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		UserID:  req.UserID,
	}
	id, err := h.contactRepo.CreateContactMessage(ctx, &msg)
	if err != nil {
		writeError(w, "failed to store message", http.StatusInternalServerError)
		return
	}
	msg.ID = id

	if h.queue != nil {
		if _, err := h.queue.Enqueue(ctx, jobs.TypeContactReceived, jobs.ContactPayload{ContactID: id}, 100, 3); err != nil {
			// the submission is stored; losing the follow-up job is log-worthy only
			logger.Error("enqueue contact.received", "err", err)
		}
	}

	writeJSON(w, msg, http.StatusCreated)
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.contactRepo.ListContactMessages(r.Context())
	if err != nil {
		writeError(w, "failed to list messages", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.ContactMessage{}
	}

	writeJSON(w, rows, http.StatusOK)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	msg, err := h.contactRepo.GetContactMessageByID(r.Context(), id)
	if err != nil {
		writeError(w, "failed to get message", http.StatusInternalServerError)
		return
	}
	if msg == nil {
		writeError(w, "message not found", http.StatusNotFound)
		return
	}

	writeJSON(w, msg, http.StatusOK)
}

func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	msg, err := h.contactRepo.GetContactMessageByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get message", http.StatusInternalServerError)
		return
	}
	if msg == nil {
		writeError(w, "message not found", http.StatusNotFound)
		return
	}

	if err := h.contactRepo.MarkContactRead(ctx, id); err != nil {
		writeError(w, "failed to mark read", http.StatusInternalServerError)
		return
	}
	msg.Read = true

	writeJSON(w, msg, http.StatusOK)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	msg, err := h.contactRepo.GetContactMessageByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get message", http.StatusInternalServerError)
		return
	}
	if msg == nil {
		writeError(w, "message not found", http.StatusNotFound)
		return
	}

	if err := h.contactRepo.DeleteContactMessage(ctx, id); err != nil {
		writeError(w, "failed to delete message", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
