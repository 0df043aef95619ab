package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

// FilesHandler manages blob metadata. The bytes live in the external storage
// service; the portal stores only URL, size and mime type.
type FilesHandler struct {
	fileRepo    repository.FileRepo
	projectRepo repository.ProjectRepo
}

func NewFilesHandler(fr repository.FileRepo, pr repository.ProjectRepo) *FilesHandler {
	return &FilesHandler{fileRepo: fr, projectRepo: pr}
}

type fileRequest struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
}

func (h *FilesHandler) ownsProject(r *http.Request, ident Identity, projectID int64) (bool, error) {
	if ident.Can(CapReadAll) {
		return true, nil
	}
	project, err := h.projectRepo.GetProjectByID(r.Context(), projectID)
	if err != nil {
		return false, err
	}
	return project != nil && project.ClientID == ident.UserID, nil
}

// List returns a project's files; ?project_id= is required and ownership is
// checked for customers.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	p := r.URL.Query().Get("project_id")
	projectID, err := strconv.ParseInt(p, 10, 64)
	if err != nil || projectID <= 0 {
		writeError(w, "project_id is required", http.StatusBadRequest)
		return
	}

	owned, err := h.ownsProject(r, ident, projectID)
	if err != nil {
		writeError(w, "failed to check project", http.StatusInternalServerError)
		return
	}
	if !owned {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}

	files, err := h.fileRepo.ListFilesByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, "failed to list files", http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []models.File{}
	}

	writeJSON(w, files, http.StatusOK)
}

func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	file, err := h.fileRepo.GetFileByID(r.Context(), id)
	if err != nil {
		writeError(w, "failed to get file", http.StatusInternalServerError)
		return
	}
	if file == nil {
		writeError(w, "file not found", http.StatusNotFound)
		return
	}

	owned, err := h.ownsProject(r, ident, file.ProjectID)
	if err != nil {
		writeError(w, "failed to check project", http.StatusInternalServerError)
		return
	}
	if !owned {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}

	writeJSON(w, file, http.StatusOK)
}

func (h *FilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ProjectID <= 0 || req.Name == "" || req.URL == "" {
		writeError(w, "missing fields", http.StatusBadRequest)
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

	file := models.File{
		ProjectID: req.ProjectID,
		Name:      req.Name,
		URL:       req.URL,
		Size:      req.Size,
		MimeType:  req.MimeType,
	}
	id, err := h.fileRepo.CreateFile(ctx, &file)
	if err != nil {
		writeError(w, "failed to create file", http.StatusInternalServerError)
		return
	}
	file.ID = id

	writeJSON(w, file, http.StatusCreated)
}

func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	file, err := h.fileRepo.GetFileByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get file", http.StatusInternalServerError)
		return
	}
	if file == nil {
		writeError(w, "file not found", http.StatusNotFound)
		return
	}

	if err := h.fileRepo.DeleteFile(ctx, id); err != nil {
		writeError(w, "failed to delete file", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
