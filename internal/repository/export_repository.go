package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/findata/be-report-approval/internal/apperrors"
	"github.com/findata/be-report-approval/internal/database"
)

// ExportRepository manages the durable export queue. The workflow only
// enqueues; consumption and completion belong to the external export
// processor.
type ExportRepository struct {
	db *database.DB
}

// NewExportRepository creates a new ExportRepository.
func NewExportRepository(db *database.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Enqueue inserts one QUEUED export request. The insert is idempotent on
// candidate id, so a retried approval of the same candidate cannot create a
// duplicate request. Returns true when a new row was created.
func (r *ExportRepository) Enqueue(ctx context.Context, req *ExportRequest) (bool, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = ExportQueued
	if req.NotifyEmails == nil {
		req.NotifyEmails = []string{}
	}

	query := `
		INSERT INTO report_export_queue
		    (id, candidate_id, report_name, view_full_name, status, notify_emails)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (candidate_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		req.ID,
		req.CandidateID,
		req.ReportName,
		req.ViewFullName,
		req.Status,
		req.NotifyEmails,
	)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to enqueue export request")
	}

	return tag.RowsAffected() > 0, nil
}

// ListByStatus returns export requests in the given status, oldest first.
func (r *ExportRepository) ListByStatus(ctx context.Context, status ExportStatus) ([]*ExportRequest, error) {
	query := `
		SELECT id, candidate_id, report_name, view_full_name, status,
		       created_at, finished_at, export_path, notify_emails
		FROM report_export_queue
		WHERE status = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to list export requests")
	}
	defer rows.Close()

	requests := make([]*ExportRequest, 0)
	for rows.Next() {
		req := &ExportRequest{}
		err := rows.Scan(
			&req.ID,
			&req.CandidateID,
			&req.ReportName,
			&req.ViewFullName,
			&req.Status,
			&req.CreatedAt,
			&req.FinishedAt,
			&req.ExportPath,
			&req.NotifyEmails,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan export request")
		}
		requests = append(requests, req)
	}

	return requests, nil
}

// MarkFinished records the terminal outcome of an export request. Used by
// the external export processor, not the approval workflow.
func (r *ExportRepository) MarkFinished(ctx context.Context, id string, status ExportStatus, exportPath *string) error {
	if status != ExportDone && status != ExportFailed {
		return apperrors.InvalidInput("status", fmt.Sprintf("%q is not a terminal export status", status))
	}

	query := `
		UPDATE report_export_queue
		SET status      = $2,
		    finished_at = NOW(),
		    export_path = $3
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, status, exportPath).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound("export_request", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to finish export request")
	}

	return nil
}
