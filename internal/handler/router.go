package handler

import (
	"net/http"

	"github.com/Dan9191/issue-tracker/internal/middleware"
	"github.com/Dan9191/issue-tracker/internal/service"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// RouterConfig carries the HTTP-only settings
type RouterConfig struct {
	CORSOrigins []string
	AuthLimiter *middleware.IPRateLimiter
}

// NewRouter wires every route. CORS, logging and panic recovery wrap the whole
// router so preflight requests never reach mux.
func NewRouter(svc *service.Service, log *logrus.Logger, cfg RouterConfig) http.Handler {
	h := NewHandler(svc, log)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Public routes
	limited := func(fn http.HandlerFunc) http.Handler {
		if cfg.AuthLimiter == nil {
			return fn
		}
		return cfg.AuthLimiter.Middleware(fn)
	}
	r.Handle("/api/auth/register", limited(h.Register)).Methods(http.MethodPost)
	r.Handle("/api/auth/login", limited(h.Login)).Methods(http.MethodPost)

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.RequireAuth(svc, log))
	api.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	api.HandleFunc("/issues", h.ListIssues).Methods(http.MethodGet)
	api.HandleFunc("/issues", h.CreateIssue).Methods(http.MethodPost)
	api.HandleFunc("/issues/stats", h.IssueStats).Methods(http.MethodGet)
	api.HandleFunc("/issues/export", h.ExportIssues).Methods(http.MethodGet)
	api.HandleFunc("/issues/{id}", h.GetIssue).Methods(http.MethodGet)
	api.HandleFunc("/issues/{id}", h.UpdateIssue).Methods(http.MethodPut)
	api.HandleFunc("/issues/{id}", h.DeleteIssue).Methods(http.MethodDelete)

	withCORS := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Total-Count", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return middleware.Logger(log)(middleware.Recoverer(log)(withCORS(r)))
}
