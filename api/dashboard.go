package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mcastilho/clientdesk/internal/dashboard"
	"github.com/mcastilho/clientdesk/internal/notify"
)

type DashboardHandler struct {
	stats  *dashboard.Service
	notify *notify.Service
}

func NewDashboardHandler(stats *dashboard.Service, notify *notify.Service) *DashboardHandler {
	return &DashboardHandler{stats: stats, notify: notify}
}

// AdminStats serves the portal-wide counters. Admin subrouter only.
func (h *DashboardHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.AdminStats(r.Context(), time.Now())
	if err != nil {
		writeError(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats, http.StatusOK)
}

func (h *DashboardHandler) CustomerStats(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	stats, err := h.stats.CustomerStats(r.Context(), ident.UserID, time.Now())
	if err != nil {
		writeError(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats, http.StatusOK)
}

// Activities serves the recent-activity feed scoped to the caller.
func (h *DashboardHandler) Activities(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	feed, err := h.stats.RecentActivity(r.Context(), ident.scope(), limit)
	if err != nil {
		writeError(w, "failed to build activity feed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, feed, http.StatusOK)
}

// Notifications synthesizes the customer feed. Admins have the contact
// inbox and the activity feed instead.
func (h *DashboardHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if ident.Can(CapReadAll) {
		writeError(w, "notifications are customer-only", http.StatusForbidden)
		return
	}

	feed, err := h.notify.ForCustomer(r.Context(), ident.UserID, time.Now())
	if err != nil {
		writeError(w, "failed to build notifications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, feed, http.StatusOK)
}
