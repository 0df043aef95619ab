package api

import (
	"github.com/gorilla/mux"

	"github.com/mcastilho/clientdesk/internal/config"
	"github.com/mcastilho/clientdesk/internal/dashboard"
	"github.com/mcastilho/clientdesk/internal/db"
	"github.com/mcastilho/clientdesk/internal/notify"
	"github.com/mcastilho/clientdesk/internal/repository/sqlite"
)

// SetupRoutes builds the full router. queue may be nil in tests that never
// exercise the contact form; gateway likewise for tests without payments.
func SetupRoutes(cfg *config.Config, version, buildTime string, database *db.DB, gateway Gateway, queue Enqueuer) (*mux.Router, error) {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(database, nil)

	// Services
	statsService := dashboard.NewService(repo, repo, repo, repo, repo, repo, repo)
	notifyService := notify.NewService(repo, repo, repo)

	// Handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(repo, cfg.JWTSecret, cfg.TokenDuration)
	customersHandler := NewCustomersHandler(repo)
	projectsHandler := NewProjectsHandler(repo)
	tasksHandler := NewTasksHandler(repo, repo)
	invoicesHandler := NewInvoicesHandler(repo, repo, gateway)
	conversationsHandler := NewConversationsHandler(repo, repo, repo)
	dashboardHandler := NewDashboardHandler(statsService, notifyService)
	testimonialsHandler := NewTestimonialsHandler(repo)
	filesHandler := NewFilesHandler(repo, repo)
	contactHandler, err := NewContactHandler(repo, queue)
	if err != nil {
		return nil, err
	}

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/testimonials", testimonialsHandler.ListPublic).Methods("GET")
	r.HandleFunc("/contact", contactHandler.Submit).Methods("POST")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Both roles (scope enforced in handlers)
	apiV1.HandleFunc("/projects", projectsHandler.List).Methods("GET")
	apiV1.HandleFunc("/projects/{id}", projectsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/tasks", tasksHandler.List).Methods("GET")
	apiV1.HandleFunc("/tasks/{id}", tasksHandler.Get).Methods("GET")
	apiV1.HandleFunc("/invoices", invoicesHandler.List).Methods("GET")
	apiV1.HandleFunc("/invoices/{id}", invoicesHandler.Get).Methods("GET")
	apiV1.HandleFunc("/invoices/{id}/checkout", invoicesHandler.Checkout).Methods("POST")
	apiV1.HandleFunc("/invoices/{id}/capture", invoicesHandler.Capture).Methods("POST")
	apiV1.HandleFunc("/conversations", conversationsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/conversations", conversationsHandler.List).Methods("GET")
	apiV1.HandleFunc("/conversations/{id}/messages", conversationsHandler.SendMessage).Methods("POST")
	apiV1.HandleFunc("/conversations/{id}/messages", conversationsHandler.Messages).Methods("GET")
	apiV1.HandleFunc("/files", filesHandler.List).Methods("GET")
	apiV1.HandleFunc("/files/{id}", filesHandler.Get).Methods("GET")
	apiV1.HandleFunc("/dashboard/customer/stats", dashboardHandler.CustomerStats).Methods("GET")
	apiV1.HandleFunc("/dashboard/customer/notifications", dashboardHandler.Notifications).Methods("GET")
	apiV1.HandleFunc("/dashboard/activities", dashboardHandler.Activities).Methods("GET")

	// Admin-only
	admin := apiV1.PathPrefix("/admin").Subrouter()
	admin.Use(RequireAdmin)
	admin.HandleFunc("/dashboard/stats", dashboardHandler.AdminStats).Methods("GET")
	admin.HandleFunc("/customers", customersHandler.List).Methods("GET")
	admin.HandleFunc("/customers", customersHandler.Create).Methods("POST")
	admin.HandleFunc("/customers/{id}", customersHandler.Get).Methods("GET")
	admin.HandleFunc("/customers/{id}", customersHandler.Update).Methods("PUT")
	admin.HandleFunc("/customers/{id}", customersHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/projects", projectsHandler.Create).Methods("POST")
	admin.HandleFunc("/projects/{id}", projectsHandler.Update).Methods("PUT")
	admin.HandleFunc("/projects/{id}", projectsHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/tasks", tasksHandler.Create).Methods("POST")
	admin.HandleFunc("/tasks/{id}", tasksHandler.Update).Methods("PUT")
	admin.HandleFunc("/tasks/{id}", tasksHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/invoices", invoicesHandler.Create).Methods("POST")
	admin.HandleFunc("/invoices/{id}/status", invoicesHandler.UpdateStatus).Methods("PUT")
	admin.HandleFunc("/invoices/{id}", invoicesHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/testimonials", testimonialsHandler.List).Methods("GET")
	admin.HandleFunc("/testimonials", testimonialsHandler.Create).Methods("POST")
	admin.HandleFunc("/testimonials/{id}", testimonialsHandler.Update).Methods("PUT")
	admin.HandleFunc("/testimonials/{id}", testimonialsHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/contact", contactHandler.List).Methods("GET")
	admin.HandleFunc("/contact/{id}", contactHandler.Get).Methods("GET")
	admin.HandleFunc("/contact/{id}/read", contactHandler.MarkRead).Methods("PUT")
	admin.HandleFunc("/contact/{id}", contactHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/files", filesHandler.Create).Methods("POST")
	admin.HandleFunc("/files/{id}", filesHandler.Delete).Methods("DELETE")

	return r, nil
}
