package api

import (
	"encoding/json"
	"net/http"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

type ProjectsHandler struct {
	projectRepo repository.ProjectRepo
}

func NewProjectsHandler(pr repository.ProjectRepo) *ProjectsHandler {
	return &ProjectsHandler{projectRepo: pr}
}

type projectRequest struct {
	Name      string `json:"name"`
	ClientID  int64  `json:"client_id"`
	Status    string `json:"status,omitempty"`
	StartDate int64  `json:"start_date"`
	EndDate   *int64 `json:"end_date,omitempty"`
}

var validProjectStatus = map[string]bool{
	models.ProjectActive:    true,
	models.ProjectCompleted: true,
	models.ProjectOnHold:    true,
	models.ProjectCancelled: true,
}

// List returns all projects for admins and only the caller's for customers.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	projects, err := h.projectRepo.ListProjects(r.Context(), ident.scope())
	if err != nil {
		writeError(w, "failed to list projects", http.StatusInternalServerError)
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}

	writeJSON(w, projects, http.StatusOK)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	project, err := h.projectRepo.GetProjectByID(r.Context(), id)
	if err != nil {
		writeError(w, "failed to get project", http.StatusInternalServerError)
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

	writeJSON(w, project, http.StatusOK)
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.ClientID <= 0 {
		writeError(w, "missing fields", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		req.Status = models.ProjectActive
	}
	if !validProjectStatus[req.Status] {
		writeError(w, "invalid status", http.StatusBadRequest)
		return
	}

	project := models.Project{
		Name:      req.Name,
		ClientID:  req.ClientID,
		Status:    req.Status,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	id, err := h.projectRepo.CreateProject(r.Context(), &project)
	if err != nil {
		writeError(w, "failed to create project", http.StatusInternalServerError)
		return
	}
	project.ID = id

	writeJSON(w, project, http.StatusCreated)
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	project, err := h.projectRepo.GetProjectByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get project", http.StatusInternalServerError)
		return
	}
	if project == nil {
		writeError(w, "project not found", http.StatusNotFound)
		return
	}

	if req.Name != "" {
		project.Name = req.Name
	}
	if req.ClientID > 0 {
		project.ClientID = req.ClientID
	}
	if req.Status != "" {
		if !validProjectStatus[req.Status] {
			writeError(w, "invalid status", http.StatusBadRequest)
			return
		}
		project.Status = req.Status
	}
	if req.StartDate > 0 {
		project.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}

	if err := h.projectRepo.UpdateProject(ctx, project); err != nil {
		writeError(w, "failed to update project", http.StatusInternalServerError)
		return
	}

	writeJSON(w, project, http.StatusOK)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	project, err := h.projectRepo.GetProjectByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get project", http.StatusInternalServerError)
		return
	}
	if project == nil {
		writeError(w, "project not found", http.StatusNotFound)
		return
	}

	if err := h.projectRepo.DeleteProject(ctx, id); err != nil {
		writeError(w, "failed to delete project", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
