package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/findata/be-report-approval/internal/apperrors"
	"github.com/findata/be-report-approval/internal/logger"
	"github.com/findata/be-report-approval/internal/repository"
	"github.com/findata/be-report-approval/internal/warehouse"
)

// CandidateStore is the candidate table contract used by the workflow.
type CandidateStore interface {
	GetByID(ctx context.Context, id string) (*repository.Candidate, error)
	ListPending(ctx context.Context) ([]*repository.Candidate, error)
	UpdateStatus(ctx context.Context, id string, status repository.CandidateStatus, updatedBy string, note *string) error
}

// AuditLog is the append-only decision log contract.
type AuditLog interface {
	Append(ctx context.Context, entry *repository.AuditEntry) error
	ListByReportName(ctx context.Context, reportName string) ([]*repository.AuditEntry, error)
}

// ExportQueue is the export queue contract. Enqueue must be idempotent per
// candidate and report whether a new request was created.
type ExportQueue interface {
	Enqueue(ctx context.Context, req *repository.ExportRequest) (bool, error)
}

// QueryExecutor runs read-only SQL against the warehouse.
type QueryExecutor interface {
	Preview(ctx context.Context, sqlText string, limit int) (*warehouse.Result, error)
	Validate(ctx context.Context, sqlText string) error
	PeekDataset(ctx context.Context, viewName string, limit int) (*warehouse.Result, error)
}

// ViewPublisher materializes named views from validated SQL.
type ViewPublisher interface {
	ViewName(reportName string) (string, error)
	CreateOrReplace(ctx context.Context, fullName, sqlText string) error
}

// Notifier publishes workflow events. Implementations must never fail the
// caller; delivery is best-effort.
type Notifier interface {
	PublishReportEvent(ctx context.Context, eventType, candidateID, reportName, actor string, recipients []string, payload map[string]interface{})
}

// ApprovalService orchestrates the review workflow: fetch pending
// candidates, preview their output, and apply approve/reject decisions with
// their side effects (view materialization, audit entry, status update,
// export enqueue).
type ApprovalService struct {
	candidates CandidateStore
	audit      AuditLog
	exports    ExportQueue
	executor   QueryExecutor
	views      ViewPublisher
	notifier   Notifier
	log        *logger.Logger
}

// NewApprovalService creates a new approval service. notifier may be nil.
func NewApprovalService(
	candidates CandidateStore,
	audit AuditLog,
	exports ExportQueue,
	executor QueryExecutor,
	views ViewPublisher,
	notifier Notifier,
	log *logger.Logger,
) *ApprovalService {
	return &ApprovalService{
		candidates: candidates,
		audit:      audit,
		exports:    exports,
		executor:   executor,
		views:      views,
		notifier:   notifier,
		log:        log,
	}
}

// ApproveRequest carries one approve or edit-approve decision.
type ApproveRequest struct {
	CandidateID  string
	SQL          string // reviewed (possibly edited) SQL; empty = approve as generated
	Actor        string
	Note         *string
	Edited       bool
	NotifyEmails []string
}

// ApproveResult reports a completed approval.
type ApproveResult struct {
	Candidate    *repository.Candidate
	ViewFullName string
	ExportQueued bool // false when a previous attempt already enqueued it
	Message      string
}

// RejectRequest carries one reject decision.
type RejectRequest struct {
	CandidateID string
	Actor       string
	Note        *string
}

// FetchPending returns all candidates awaiting review, oldest first.
func (s *ApprovalService) FetchPending(ctx context.Context) ([]*repository.Candidate, error) {
	return s.candidates.ListPending(ctx)
}

// Preview executes the candidate SQL wrapped in a row-limited subselect.
// Read-only and freely retryable.
func (s *ApprovalService) Preview(ctx context.Context, sqlText string, limit int) (*warehouse.Result, error) {
	return s.executor.Preview(ctx, sqlText, limit)
}

// PeekDataset returns the first rows of an existing dataset view, used when
// reviewing structured report definitions.
func (s *ApprovalService) PeekDataset(ctx context.Context, viewName string, limit int) (*warehouse.Result, error) {
	return s.executor.PeekDataset(ctx, viewName, limit)
}

// AuditTrail returns the decision history for a report, oldest first.
func (s *ApprovalService) AuditTrail(ctx context.Context, reportName string) ([]*repository.AuditEntry, error) {
	return s.audit.ListByReportName(ctx, reportName)
}

// Approve applies an approve or edit-approve decision.
//
// Validation (plan-only) runs before any mutation, so a broken candidate
// aborts with zero writes. The mutation order is deliberate: the view is
// materialized before the status flip so a crash cannot leave an approved
// candidate pointing at a nonexistent view, and the audit entry is written
// before the status flip so the trail always has at least as many entries as
// completed transitions. Each mutation step tolerates re-execution (view
// replace, terminal-status re-apply, enqueue keyed by candidate id), so a
// caller may retry the same decision after a partial failure.
func (s *ApprovalService) Approve(ctx context.Context, req *ApproveRequest) (*ApproveResult, error) {
	if req.Actor == "" {
		return nil, apperrors.InvalidInput("actor", "actor is required")
	}

	candidate, err := s.candidates.GetByID(ctx, req.CandidateID)
	if err != nil {
		return nil, err
	}

	if !repository.CanTransition(candidate.Status, repository.StatusApproved) {
		return nil, apperrors.New(apperrors.ErrCodeConflict,
			fmt.Sprintf("cannot approve candidate with status %s", candidate.Status))
	}

	// reviewedSQL is what the reviewer saw and submitted; it goes into the
	// audit log verbatim. The view is built from the alias-normalized form.
	reviewedSQL := req.SQL
	if reviewedSQL == "" {
		reviewedSQL = candidate.GeneratedSQL
	}

	decision := repository.DecisionApprove
	note := req.Note
	if req.Edited {
		decision = repository.DecisionEditApprove
		if note == nil {
			edited := "manually edited"
			note = &edited
		}
	}

	// Resolve target view and validate before any mutation.
	var viewFull, viewSQL string
	switch candidate.Kind {
	case repository.KindReport:
		if candidate.DatasetView == nil || *candidate.DatasetView == "" {
			return nil, apperrors.InvalidInput("dataset_view", "report candidate has no dataset view")
		}
		viewFull = *candidate.DatasetView
		if !warehouse.ValidQualifiedIdent(viewFull) {
			return nil, apperrors.InvalidInput("dataset_view",
				fmt.Sprintf("%q is not a valid identifier", viewFull))
		}
		if err := s.executor.Validate(ctx, "SELECT * FROM "+viewFull); err != nil {
			return nil, err
		}
	default:
		viewFull, err = s.views.ViewName(candidate.ReportName)
		if err != nil {
			return nil, err
		}
		viewSQL = warehouse.NormalizeAliases(reviewedSQL)
		if err := s.executor.Validate(ctx, viewSQL); err != nil {
			return nil, err
		}
	}

	completed := make([]string, 0, 4)

	if candidate.Kind != repository.KindReport {
		if err := s.views.CreateOrReplace(ctx, viewFull, viewSQL); err != nil {
			return nil, err
		}
		completed = append(completed, "view materialized")
	}

	entry := &repository.AuditEntry{
		ReportName: candidate.ReportName,
		User:       req.Actor,
		Decision:   decision,
		SQLText:    reviewedSQL,
		Notes:      note,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return nil, s.partial(err, "audit entry", completed)
	}
	completed = append(completed, "audit entry written")

	if err := s.candidates.UpdateStatus(ctx, candidate.ID, repository.StatusApproved, req.Actor, note); err != nil {
		return nil, s.partial(err, "status update", completed)
	}
	completed = append(completed, "status updated")

	created, err := s.exports.Enqueue(ctx, &repository.ExportRequest{
		CandidateID:  candidate.ID,
		ReportName:   candidate.ReportName,
		ViewFullName: viewFull,
		NotifyEmails: req.NotifyEmails,
	})
	if err != nil {
		return nil, s.partial(err, "export enqueue", completed)
	}

	s.log.Info().
		Str("candidate_id", candidate.ID).
		Str("report_name", candidate.ReportName).
		Str("view", viewFull).
		Str("decision", string(decision)).
		Str("actor", req.Actor).
		Bool("export_queued", created).
		Msg("Candidate approved")

	if s.notifier != nil {
		s.notifier.PublishReportEvent(ctx, "approved", candidate.ID, candidate.ReportName, req.Actor,
			req.NotifyEmails, map[string]interface{}{
				"view_full_name": viewFull,
				"decision":       string(decision),
			})
	}

	updated, err := s.candidates.GetByID(ctx, candidate.ID)
	if err != nil {
		updated = candidate
	}

	return &ApproveResult{
		Candidate:    updated,
		ViewFullName: viewFull,
		ExportQueued: created,
		Message:      fmt.Sprintf("report %s approved and queued for export as %s", candidate.ReportName, viewFull),
	}, nil
}

// Reject applies a reject decision. No view or export side effects.
// Re-rejecting a rejected candidate re-applies the status and appends
// another audit entry; rejection has no downstream resource to duplicate.
func (s *ApprovalService) Reject(ctx context.Context, req *RejectRequest) (*repository.Candidate, error) {
	if req.Actor == "" {
		return nil, apperrors.InvalidInput("actor", "actor is required")
	}

	candidate, err := s.candidates.GetByID(ctx, req.CandidateID)
	if err != nil {
		return nil, err
	}

	if !repository.CanTransition(candidate.Status, repository.StatusRejected) {
		return nil, apperrors.New(apperrors.ErrCodeConflict,
			fmt.Sprintf("cannot reject candidate with status %s", candidate.Status))
	}

	entry := &repository.AuditEntry{
		ReportName: candidate.ReportName,
		User:       req.Actor,
		Decision:   repository.DecisionReject,
		SQLText:    candidate.GeneratedSQL,
		Notes:      req.Note,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.candidates.UpdateStatus(ctx, candidate.ID, repository.StatusRejected, req.Actor, req.Note); err != nil {
		return nil, s.partial(err, "status update", []string{"audit entry written"})
	}

	s.log.Info().
		Str("candidate_id", candidate.ID).
		Str("report_name", candidate.ReportName).
		Str("actor", req.Actor).
		Msg("Candidate rejected")

	if s.notifier != nil {
		s.notifier.PublishReportEvent(ctx, "rejected", candidate.ID, candidate.ReportName, req.Actor,
			nil, nil)
	}

	updated, err := s.candidates.GetByID(ctx, candidate.ID)
	if err != nil {
		updated = candidate
	}

	return updated, nil
}

// partial wraps a mid-sequence failure with enough detail for the caller to
// know what completed. There is no cross-store transaction; the steps are
// individually idempotent so retrying the same decision is safe.
func (s *ApprovalService) partial(err error, failedStep string, completed []string) error {
	if len(completed) == 0 {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrCodePartial,
		fmt.Sprintf("%s failed after: %s; retry the same decision to complete",
			failedStep, strings.Join(completed, ", ")))
}
