package api

import (
	"encoding/json"
	"net/http"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

type TestimonialsHandler struct {
	testimonialRepo repository.TestimonialRepo
}

func NewTestimonialsHandler(tr repository.TestimonialRepo) *TestimonialsHandler {
	return &TestimonialsHandler{testimonialRepo: tr}
}

type testimonialRequest struct {
	ClientID int64  `json:"client_id"`
	Content  string `json:"content"`
	Rating   int    `json:"rating"`
	Position string `json:"position,omitempty"`
	Company  string `json:"company,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Ord      *int   `json:"order,omitempty"`
}

// ListPublic serves the unauthenticated portfolio page: active rows only,
// ordered by the display sort key.
func (h *TestimonialsHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	rows, err := h.testimonialRepo.ListTestimonials(r.Context(), true)
	if err != nil {
		writeError(w, "failed to list testimonials", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.Testimonial{}
	}

	writeJSON(w, rows, http.StatusOK)
}

func (h *TestimonialsHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.testimonialRepo.ListTestimonials(r.Context(), false)
	if err != nil {
		writeError(w, "failed to list testimonials", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.Testimonial{}
	}

	writeJSON(w, rows, http.StatusOK)
}

func (h *TestimonialsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req testimonialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Content == "" || req.ClientID <= 0 {
		writeError(w, "missing fields", http.StatusBadRequest)
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, "rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	t := models.Testimonial{
		ClientID: req.ClientID,
		Content:  req.Content,
		Rating:   req.Rating,
		Position: req.Position,
		Company:  req.Company,
		IsActive: true,
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if req.Ord != nil {
		t.Ord = *req.Ord
	}

	id, err := h.testimonialRepo.CreateTestimonial(r.Context(), &t)
	if err != nil {
		writeError(w, "failed to create testimonial", http.StatusInternalServerError)
		return
	}
	t.ID = id

	writeJSON(w, t, http.StatusCreated)
}

func (h *TestimonialsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req testimonialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	t, err := h.testimonialRepo.GetTestimonialByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get testimonial", http.StatusInternalServerError)
		return
	}
	if t == nil {
		writeError(w, "testimonial not found", http.StatusNotFound)
		return
	}

	if req.Content != "" {
		t.Content = req.Content
	}
	if req.Rating != 0 {
		if req.Rating < 1 || req.Rating > 5 {
			writeError(w, "rating must be between 1 and 5", http.StatusBadRequest)
			return
		}
		t.Rating = req.Rating
	}
	if req.Position != "" {
		t.Position = req.Position
	}
	if req.Company != "" {
		t.Company = req.Company
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if req.Ord != nil {
		t.Ord = *req.Ord
	}

	if err := h.testimonialRepo.UpdateTestimonial(ctx, t); err != nil {
		writeError(w, "failed to update testimonial", http.StatusInternalServerError)
		return
	}

	writeJSON(w, t, http.StatusOK)
}

func (h *TestimonialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	t, err := h.testimonialRepo.GetTestimonialByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get testimonial", http.StatusInternalServerError)
		return
	}
	if t == nil {
		writeError(w, "testimonial not found", http.StatusNotFound)
		return
	}

	if err := h.testimonialRepo.DeleteTestimonial(ctx, id); err != nil {
		writeError(w, "failed to delete testimonial", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
