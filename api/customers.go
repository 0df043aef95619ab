package api

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/repository"
)

// CustomersHandler is the admin CRUD surface over users with role CUSTOMER.
type CustomersHandler struct {
	userRepo repository.UserRepo
}

func NewCustomersHandler(ur repository.UserRepo) *CustomersHandler {
	return &CustomersHandler{userRepo: ur}
}

type customerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Company  string `json:"company,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.ListUsersByRole(r.Context(), models.RoleCustomer)
	if err != nil {
		writeError(w, "failed to list customers", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	writeJSON(w, users, http.StatusOK)
}

func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	user, err := h.userRepo.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, "failed to get customer", http.StatusInternalServerError)
		return
	}
	if user == nil || user.Role != models.RoleCustomer {
		writeError(w, "customer not found", http.StatusNotFound)
		return
	}

	writeJSON(w, user, http.StatusOK)
}

func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, "missing fields", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, "error hashing password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
		Company:      req.Company,
		Phone:        req.Phone,
	}
	id, err := h.userRepo.CreateUser(r.Context(), &user)
	if err != nil {
		writeError(w, "failed to create customer", http.StatusInternalServerError)
		return
	}
	user.ID = id

	writeJSON(w, user, http.StatusCreated)
}

func (h *CustomersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	user, err := h.userRepo.GetUserByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get customer", http.StatusInternalServerError)
		return
	}
	if user == nil || user.Role != models.RoleCustomer {
		writeError(w, "customer not found", http.StatusNotFound)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	user.Company = req.Company
	user.Phone = req.Phone
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, "error hashing password", http.StatusInternalServerError)
			return
		}
		user.PasswordHash = string(hash)
	}

	if err := h.userRepo.UpdateUser(ctx, user); err != nil {
		writeError(w, "failed to update customer", http.StatusInternalServerError)
		return
	}

	writeJSON(w, user, http.StatusOK)
}

func (h *CustomersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	user, err := h.userRepo.GetUserByID(ctx, id)
	if err != nil {
		writeError(w, "failed to get customer", http.StatusInternalServerError)
		return
	}
	if user == nil || user.Role != models.RoleCustomer {
		writeError(w, "customer not found", http.StatusNotFound)
		return
	}

	if err := h.userRepo.DeleteUser(ctx, id); err != nil {
		writeError(w, "failed to delete customer", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
