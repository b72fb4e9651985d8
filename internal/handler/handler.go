package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-assessment/internal/export"
	"github.com/Dan9191/loan-assessment/internal/middleware"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/service"
)

// ExportFilename is the attachment name of CSV exports
const ExportFilename = "filtered_predictions.csv"

type Handler struct {
	svc       *service.Service
	projector *export.Projector
	log       *logrus.Logger
}

func NewHandler(svc *service.Service, projector *export.Projector, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, projector: projector, log: log}
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// SubmitAssessment scores a loan application submitted as a form or a JSON object
func (h *Handler) SubmitAssessment(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	raw, err := readFields(w, r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	name := raw["applicant_name"]
	delete(raw, "applicant_name")

	a, err := h.svc.SubmitAssessment(r.Context(), userID, name, raw)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// GetAssessment returns one assessment to its owner or to an admin
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid assessment id", http.StatusBadRequest)
		return
	}

	a, err := h.svc.GetAssessment(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canView(r.Context(), a) {
		h.writeError(w, models.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) canView(ctx context.Context, a *models.Assessment) bool {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return false
	}
	if a.UserID == userID {
		return true
	}
	user, err := h.svc.FindUser(ctx, userID)
	return err == nil && user.IsAdmin()
}

// History lists the caller's assessments
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	list, err := h.svc.ListHistory(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// AdminSearch lists assessments of all users matching ?search=
func (h *Handler) AdminSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.SearchAssessments(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Export streams the assessments matching ?search= as a CSV attachment
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("search")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", ExportFilename))

	out := &trackingWriter{w: w}
	n, err := h.projector.WriteCSV(r.Context(), out, filter)
	if err != nil {
		if !out.wrote {
			w.Header().Del("Content-Disposition")
			h.writeError(w, err)
			return
		}
		// The status line is gone; the client sees a truncated file.
		h.log.Errorf("Export failed after %d rows: %v", n, err)
		return
	}
	h.log.Infof("Exported %d assessments (search=%q)", n, filter)
}

// Health reports whether the store is reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Ping(ctx); err != nil {
		h.log.Errorf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	var serr *models.ScoringError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.As(err, &serr):
		http.Error(w, "Scoring model unavailable", http.StatusBadGateway)
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "Assessment not found", http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidCredentials):
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, models.ErrUserExists):
		http.Error(w, "Username or email already taken", http.StatusConflict)
	default:
		h.log.Errorf("Request failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

type trackingWriter struct {
	w     http.ResponseWriter
	wrote bool
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	t.wrote = true
	return t.w.Write(p)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
