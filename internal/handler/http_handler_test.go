package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findata/be-report-approval/internal/apperrors"
	"github.com/findata/be-report-approval/internal/logger"
	"github.com/findata/be-report-approval/internal/repository"
	"github.com/findata/be-report-approval/internal/service"
	"github.com/findata/be-report-approval/internal/warehouse"
)

// Minimal fakes: only what the service-backed endpoints exercise.

type stubCandidates struct {
	candidate *repository.Candidate
}

func (s *stubCandidates) GetByID(ctx context.Context, id string) (*repository.Candidate, error) {
	if s.candidate == nil || s.candidate.ID != id {
		return nil, apperrors.NotFound("candidate", id)
	}
	copied := *s.candidate
	return &copied, nil
}

func (s *stubCandidates) ListPending(ctx context.Context) ([]*repository.Candidate, error) {
	return nil, nil
}

func (s *stubCandidates) UpdateStatus(ctx context.Context, id string, status repository.CandidateStatus, updatedBy string, note *string) error {
	s.candidate.Status = status
	s.candidate.UpdatedBy = &updatedBy
	return nil
}

type stubAudit struct{}

func (stubAudit) Append(ctx context.Context, entry *repository.AuditEntry) error { return nil }
func (stubAudit) ListByReportName(ctx context.Context, reportName string) ([]*repository.AuditEntry, error) {
	return []*repository.AuditEntry{}, nil
}

type stubExports struct{}

func (stubExports) Enqueue(ctx context.Context, req *repository.ExportRequest) (bool, error) {
	return true, nil
}

type stubExecutor struct {
	validateErr error
}

func (s *stubExecutor) Preview(ctx context.Context, sqlText string, limit int) (*warehouse.Result, error) {
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	return &warehouse.Result{Columns: []string{"region", "sum_amount"}, Rows: [][]interface{}{{"EU", 42}}}, nil
}

func (s *stubExecutor) Validate(ctx context.Context, sqlText string) error { return s.validateErr }

func (s *stubExecutor) PeekDataset(ctx context.Context, viewName string, limit int) (*warehouse.Result, error) {
	return &warehouse.Result{Columns: []string{"id"}}, nil
}

type stubViews struct{}

func (stubViews) ViewName(reportName string) (string, error) { return "kyc_gold." + reportName, nil }
func (stubViews) CreateOrReplace(ctx context.Context, fullName, sqlText string) error {
	return nil
}

func newTestHandler(cands *stubCandidates, exec *stubExecutor) *HTTPHandler {
	log := logger.New(logger.Config{Level: "error", ServiceName: "test"})
	svc := service.NewApprovalService(cands, stubAudit{}, stubExports{}, exec, stubViews{}, nil, log)
	return NewHTTPHandler(svc, nil, nil, log)
}

func TestApproveEndpoint(t *testing.T) {
	cands := &stubCandidates{candidate: &repository.Candidate{
		ID:           "abc",
		ReportName:   "fraud_q3",
		GeneratedSQL: "SELECT 1",
		Kind:         repository.KindSQL,
		Status:       repository.StatusPending,
	}}
	h := newTestHandler(cands, &stubExecutor{})

	body, _ := json.Marshal(map[string]interface{}{"id": "abc", "actor": "alice"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates/approve", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Approve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ViewFullName string `json:"view_full_name"`
		ExportQueued bool   `json:"export_queued"`
		Message      string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "kyc_gold.fraud_q3", resp.ViewFullName)
	assert.True(t, resp.ExportQueued)
	assert.NotEmpty(t, resp.Message)
}

func TestApproveEndpointNotFound(t *testing.T) {
	h := newTestHandler(&stubCandidates{}, &stubExecutor{})

	body, _ := json.Marshal(map[string]interface{}{"id": "missing", "actor": "alice"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates/approve", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Approve(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp["code"])
}

func TestPreviewEndpointValidationError(t *testing.T) {
	exec := &stubExecutor{validateErr: apperrors.New(apperrors.ErrCodeValidation, "syntax error")}
	h := newTestHandler(&stubCandidates{}, exec)

	body, _ := json.Marshal(map[string]interface{}{"sql": "SELEC oops", "limit": 10})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates/preview", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Preview(rec, req)

	// A structured 400, not a panic or opaque 500: the UI shows the message.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION", resp["code"])
	assert.NotEmpty(t, resp["message"])
}

func TestRejectEndpoint(t *testing.T) {
	cands := &stubCandidates{candidate: &repository.Candidate{
		ID:         "abc",
		ReportName: "fraud_q3",
		Status:     repository.StatusPending,
	}}
	h := newTestHandler(cands, &stubExecutor{})

	body, _ := json.Marshal(map[string]interface{}{"id": "abc", "actor": "bob", "note": "dup"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates/reject", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Reject(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repository.StatusRejected, cands.candidate.Status)
}

func TestApproveEndpointInvalidBody(t *testing.T) {
	h := newTestHandler(&stubCandidates{}, &stubExecutor{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates/approve", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	h.Approve(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
