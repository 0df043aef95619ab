package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

type TasksHandler struct {
	taskRepo    repository.TaskRepo
	projectRepo repository.ProjectRepo
}

func NewTasksHandler(tr repository.TaskRepo, pr repository.ProjectRepo) *TasksHandler {
	return &TasksHandler{taskRepo: tr, projectRepo: pr}
}

type taskRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ProjectID    int64  `json:"project_id"`
	Priority     string `json:"priority,omitempty"`
	Status       string `json:"status,omitempty"`
	DueDate      int64  `json:"due_date"`
	AssignedToID *int64 `json:"assigned_to_id,omitempty"`
}

var validTaskStatus = map[string]bool{
	models.TaskTodo:       true,
	models.TaskInProgress: true,
	models.TaskReview:     true,
	models.TaskCompleted:  true,
}

var validPriority = map[string]bool{
	models.PriorityLow:    true,
	models.PriorityMedium: true,
	models.PriorityHigh:   true,
}

// ownsProject reports whether the caller may read the given project.
func (h *TasksHandler) ownsProject(r *http.Request, ident Identity, projectID int64) (bool, error) {
	if ident.Can(CapReadAll) {
		return true, nil
	}
	project, err := h.projectRepo.GetProjectByID(r.Context(), projectID)
	if err != nil {
		return false, err
	}
	return project != nil && project.ClientID == ident.UserID, nil
}

// List returns the caller's tasks: all of them for admins, tasks of owned
// projects for customers. ?project_id= narrows to one project with an
// ownership check.
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r)
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	if p := r.URL.Query().Get("project_id"); p != "" {
		projectID, err := strconv.ParseInt(p, 10, 64)
		if err != nil || projectID <= 0 {
			writeError(w, "invalid project_id", http.StatusBadRequest)
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

		tasks, err := h.taskRepo.ListTasksByProject(r.Context(), projectID)
		if err != nil {
			writeError(w, "failed to list tasks", http.StatusInternalServerError)
			return
		}
		if tasks == nil {
			tasks = []models.Task{}
		}
		writeJSON(w, tasks, http.StatusOK)
		return
	}

	tasks, err := h.taskRepo.ListTasksByClient(r.Context(), ident.scope())
	if err != nil {
		writeError(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	writeJSON(w, tasks, http.StatusOK)
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	task, err := h.taskRepo.GetTaskByID(r.Context(), id)
	if err != nil {
		writeError(w, "failed to get task", http.StatusInternalServerError)
		return
	}
	if task == nil {
		writeError(w, "task not found", http.StatusNotFound)
		return
	}

	owned, err := h.ownsProject(r, ident, task.ProjectID)
	if err != nil {
		writeError(w, "failed to check project", http.StatusInternalServerError)
		return
	}
	if !owned {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}

	writeJSON(w, task, http.StatusOK)
}

func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.ProjectID <= 0 {
		writeError(w, "missing fields", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		req.Status = models.TaskTodo
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !validTaskStatus[req.Status] || !validPriority[req.Priority] {
		writeError(w, "invalid status or priority", http.StatusBadRequest)
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

	task := models.Task{
		Title:        req.Title,
		Description:  req.Description,
		ProjectID:    req.ProjectID,
		Priority:     req.Priority,
		Status:       req.Status,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
	}
	id, err := h.taskRepo.CreateTask(ctx, &task)
	if err != nil {
		writeError(w, "failed to create task", http.StatusInternalServerError)
		return
	}
	task.ID = id

	writeJSON(w, task, http.StatusCreated)
}

func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetTaskByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get task", http.StatusInternalServerError)
		return
	}
	if task == nil {
		writeError(w, "task not found", http.StatusNotFound)
		return
	}

	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Description != "" {
		task.Description = req.Description
	}
	if req.Status != "" {
		if !validTaskStatus[req.Status] {
			writeError(w, "invalid status", http.StatusBadRequest)
			return
		}
		task.Status = req.Status
	}
	if req.Priority != "" {
		if !validPriority[req.Priority] {
			writeError(w, "invalid priority", http.StatusBadRequest)
			return
		}
		task.Priority = req.Priority
	}
	if req.DueDate > 0 {
		task.DueDate = req.DueDate
	}
	if req.AssignedToID != nil {
		task.AssignedToID = req.AssignedToID
	}

	if err := h.taskRepo.UpdateTask(ctx, task); err != nil {
		writeError(w, "failed to update task", http.StatusInternalServerError)
		return
	}

	writeJSON(w, task, http.StatusOK)
}

func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetTaskByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get task", http.StatusInternalServerError)
		return
	}
	if task == nil {
		writeError(w, "task not found", http.StatusNotFound)
		return
	}

	if err := h.taskRepo.DeleteTask(ctx, id); err != nil {
		writeError(w, "failed to delete task", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
