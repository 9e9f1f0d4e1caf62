package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/findata/be-report-approval/internal/apperrors"
	"github.com/findata/be-report-approval/internal/logger"
	"github.com/findata/be-report-approval/internal/repository"
	"github.com/findata/be-report-approval/internal/service"
)

// HTTPHandler handles HTTP requests for the review workflow.
type HTTPHandler struct {
	service    *service.ApprovalService
	candidates *repository.CandidateRepository
	exports    *repository.ExportRepository
	log        *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	svc *service.ApprovalService,
	candidates *repository.CandidateRepository,
	exports *repository.ExportRepository,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		service:    svc,
		candidates: candidates,
		exports:    exports,
		log:        log,
	}
}

// statusFor maps application error codes to HTTP status codes.
func statusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodePartial:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	json.NewEncoder(w).Encode(map[string]string{
		"code":    string(apperrors.CodeOf(err)),
		"message": apperrors.MessageOf(err),
	})
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ListCandidates handles candidate list requests. Defaults to the pending
// review queue; an explicit status filter is accepted.
func (h *HTTPHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	status := repository.CandidateStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = repository.StatusPending
	}

	candidates, err := h.candidates.ListByStatus(r.Context(), status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"total":      len(candidates),
	})
}

// CreateCandidate handles candidate inserts from the upstream generation
// process.
func (h *HTTPHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var candidate repository.Candidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if candidate.ReportName == "" {
		h.writeError(w, apperrors.InvalidInput("report_name", "report name is required"))
		return
	}

	if err := h.candidates.Insert(r.Context(), &candidate); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, &candidate)
}

// GetCandidate handles single candidate reads.
func (h *HTTPHandler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Candidate ID is required", http.StatusBadRequest)
		return
	}

	candidate, err := h.candidates.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, candidate)
}

// Preview handles query output preview requests.
func (h *HTTPHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SQL   string `json:"sql"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Preview(r.Context(), req.SQL, req.Limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// PeekDataset handles dataset peeks for structured report candidates.
func (h *HTTPHandler) PeekDataset(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		http.Error(w, "View name is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.service.PeekDataset(r.Context(), view, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Approve handles approve and edit-approve decisions.
func (h *HTTPHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID           string   `json:"id"`
		SQL          string   `json:"sql"`
		Actor        string   `json:"actor"`
		Note         *string  `json:"note"`
		Edited       bool     `json:"edited"`
		NotifyEmails []string `json:"notify_emails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Approve(r.Context(), &service.ApproveRequest{
		CandidateID:  req.ID,
		SQL:          req.SQL,
		Actor:        req.Actor,
		Note:         req.Note,
		Edited:       req.Edited,
		NotifyEmails: req.NotifyEmails,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidate":      result.Candidate,
		"view_full_name": result.ViewFullName,
		"export_queued":  result.ExportQueued,
		"message":        result.Message,
	})
}

// Reject handles reject decisions.
func (h *HTTPHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    string  `json:"id"`
		Actor string  `json:"actor"`
		Note  *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	candidate, err := h.service.Reject(r.Context(), &service.RejectRequest{
		CandidateID: req.ID,
		Actor:       req.Actor,
		Note:        req.Note,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidate": candidate,
		"message":   "candidate rejected",
	})
}

// AuditTrail handles decision history reads for a report.
func (h *HTTPHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	reportName := r.URL.Query().Get("report_name")
	if reportName == "" {
		http.Error(w, "Report name is required", http.StatusBadRequest)
		return
	}

	entries, err := h.service.AuditTrail(r.Context(), reportName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}

// ListExports handles export queue reads for operational visibility.
func (h *HTTPHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	status := repository.ExportStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = repository.ExportQueued
	}

	requests, err := h.exports.ListByStatus(r.Context(), status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"exports": requests,
		"total":   len(requests),
	})
}
