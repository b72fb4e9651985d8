package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/Dan9191/loan-assessment/internal/middleware"
)

// NewRouter wires the public, user and admin routes
func NewRouter(h *Handler, cfg *config.Config, limiter *middleware.SubmissionLimiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(h.log))

	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.Handle("/assessments", limiter.Middleware(http.HandlerFunc(h.SubmitAssessment))).Methods("POST")
	authRouter.HandleFunc("/assessments/{id:[0-9]+}", h.GetAssessment).Methods("GET")
	authRouter.HandleFunc("/history", h.History).Methods("GET")

	// Admin routes
	adminRouter := authRouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.RequireAdmin(h.svc))
	adminRouter.HandleFunc("/assessments", h.AdminSearch).Methods("GET")
	adminRouter.HandleFunc("/export", h.Export).Methods("GET")

	return r
}
