package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

type ConversationsHandler struct {
	convRepo    repository.ConversationRepo
	projectRepo repository.ProjectRepo
	userRepo    repository.UserRepo
}

func NewConversationsHandler(cr repository.ConversationRepo, pr repository.ProjectRepo, ur repository.UserRepo) *ConversationsHandler {
	return &ConversationsHandler{convRepo: cr, projectRepo: pr, userRepo: ur}
}

// canAccessConversation reports whether the caller may read or post to a
// conversation: admins always, customers only on their own project's thread.
func (h *ConversationsHandler) canAccessConversation(r *http.Request, ident Identity, conv *models.Conversation) (bool, error) {
	if ident.Can(CapReadAll) {
		return true, nil
	}
	if conv.ProjectID == nil {
		return false, nil
	}
	project, err := h.projectRepo.GetProjectByID(r.Context(), *conv.ProjectID)
	if err != nil {
		return false, err
	}
	return project != nil && project.ClientID == ident.UserID, nil
}

type createConversationRequest struct {
	ProjectID int64 `json:"project_id"`
}

// Create finds or creates the project's conversation. The storage layer
// enforces one conversation per project, so repeated calls converge on the
// same row.
func (h *ConversationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ProjectID <= 0 {
		writeError(w, "project_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	project, err := h.projectRepo.GetProjectByID(ctx, req.ProjectID)
	if err != nil {
		writeError(w, "failed to check project", http.StatusInternalServerError)
		return
	}
	if project == nil {
		writeError(w, "project not found", http.StatusNotFound)
		return
	}
	if !ident.Can(CapReadAll) && project.ClientID != ident.UserID {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}

	conv, err := h.convRepo.FindOrCreateConversation(ctx, &req.ProjectID)
	if err != nil {
		writeError(w, "failed to open conversation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, conv, http.StatusOK)
}

type conversationSummary struct {
	models.Conversation
	LatestMessage *models.Message `json:"latest_message,omitempty"`
	UnreadCount   int64           `json:"unread_count"`
}

// List returns the caller's conversations, each with its latest message and
// the caller's unread count.
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	convs, err := h.convRepo.ListConversations(ctx, ident.scope())
	if err != nil {
		writeError(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}

	out := make([]conversationSummary, 0, len(convs))
	for _, c := range convs {
		latest, err := h.convRepo.LatestMessage(ctx, c.ID)
		if err != nil {
			writeError(w, "failed to load latest message", http.StatusInternalServerError)
			return
		}
		unread, err := h.convRepo.CountUnread(ctx, c.ID, ident.UserID)
		if err != nil {
			writeError(w, "failed to count unread", http.StatusInternalServerError)
			return
		}
		out = append(out, conversationSummary{Conversation: c, LatestMessage: latest, UnreadCount: unread})
	}

	writeJSON(w, out, http.StatusOK)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *ConversationsHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
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

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		writeError(w, "content is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	conv, err := h.convRepo.GetConversationByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get conversation", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		writeError(w, "conversation not found", http.StatusNotFound)
		return
	}

	allowed, err := h.canAccessConversation(r, ident, conv)
	if err != nil {
		writeError(w, "failed to check access", http.StatusInternalServerError)
		return
	}
	if !allowed {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}

	msg := models.Message{
		ConversationID: id,
		SenderID:       ident.UserID,
		Content:        req.Content,
	}
	msgID, err := h.convRepo.CreateMessage(ctx, &msg)
	if err != nil {
		writeError(w, "failed to send message", http.StatusInternalServerError)
		return
	}
	msg.ID = msgID
	msg.SenderRole = ident.Role
	if sender, err := h.userRepo.GetUserByID(ctx, ident.UserID); err == nil && sender != nil {
		msg.SenderName = sender.Name
	}

	writeJSON(w, msg, http.StatusCreated)
}

// Messages returns the conversation ascending by creation, then marks the
// other party's messages read up to now. Listing and marking are separate
// repo calls so the read flip never blocks the fetch.
func (h *ConversationsHandler) Messages(w http.ResponseWriter, r *http.Request) {
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
	conv, err := h.convRepo.GetConversationByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get conversation", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		writeError(w, "conversation not found", http.StatusNotFound)
		return
	}

	allowed, err := h.canAccessConversation(r, ident, conv)
	if err != nil {
		writeError(w, "failed to check access", http.StatusInternalServerError)
		return
	}
	if !allowed {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}

	msgs, err := h.convRepo.ListMessages(ctx, id)
	if err != nil {
		writeError(w, "failed to list messages", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	if err := h.convRepo.MarkReadUpTo(ctx, id, ident.UserID, time.Now().UTC().UnixMilli()); err != nil {
		logger.Error("mark read", "conversation", id, "err", err)
	}

	writeJSON(w, msgs, http.StatusOK)
}
