package repository

import "time"

// ── Domain types for the report approval workflow ────────────────────────────

// CandidateStatus is the review state of a report candidate.
type CandidateStatus string

const (
	StatusPending  CandidateStatus = "PENDING"
	StatusApproved CandidateStatus = "APPROVED"
	StatusRejected CandidateStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s CandidateStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether the status change from -> to is allowed.
// PENDING may move to either terminal state. Re-applying the same terminal
// state is allowed so that a caller-driven retry of a partially completed
// decision can run the remaining steps.
func CanTransition(from, to CandidateStatus) bool {
	if from == StatusPending {
		return to == StatusApproved || to == StatusRejected
	}
	return from == to && from.Valid()
}

// Decision is the kind of review action recorded in the audit log.
type Decision string

const (
	DecisionApprove     Decision = "APPROVE"
	DecisionEditApprove Decision = "EDIT_APPROVE"
	DecisionReject      Decision = "REJECT"
)

// ExportStatus is the lifecycle state of an export request. The workflow
// only ever writes QUEUED; the remaining states belong to the external
// export processor.
type ExportStatus string

const (
	ExportQueued     ExportStatus = "QUEUED"
	ExportInProgress ExportStatus = "IN_PROGRESS"
	ExportDone       ExportStatus = "DONE"
	ExportFailed     ExportStatus = "FAILED"
)

// CandidateKind distinguishes raw SQL candidates from structured report
// definitions.
type CandidateKind string

const (
	KindSQL    CandidateKind = "sql"
	KindReport CandidateKind = "report"
)

// Candidate is an AI-generated report/SQL artifact awaiting review.
// Rows are never physically deleted; terminal states are retained for audit.
type Candidate struct {
	ID           string
	ReportName   string
	Prompt       *string
	GeneratedSQL string
	Kind         CandidateKind
	DatasetView  *string
	ChartType    *string
	Filters      map[string]interface{}
	ExportFormat *string
	DraftPaths   []string
	Status       CandidateStatus
	Notes        *string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedBy    *string
	UpdatedAt    *time.Time
}

// AuditEntry is one immutable record of a review decision. The report name
// reference is deliberately not a foreign key so entries outlive candidates.
type AuditEntry struct {
	ID         string
	ReportName string
	User       string
	Decision   Decision
	SQLText    string
	Notes      *string
	Timestamp  time.Time
}

// ExportRequest is a queued unit of downstream publishing work, created once
// per successful approval.
type ExportRequest struct {
	ID           string
	CandidateID  string
	ReportName   string
	ViewFullName string
	Status       ExportStatus
	CreatedAt    time.Time
	FinishedAt   *time.Time
	ExportPath   *string
	NotifyEmails []string
}
