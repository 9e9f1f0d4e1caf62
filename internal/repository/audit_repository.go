package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/findata/be-report-approval/internal/apperrors"
	"github.com/findata/be-report-approval/internal/database"
)

// AuditRepository appends and reads immutable review decision records.
// The log is append-only: no update or delete operation is exposed, and a
// resubmitted decision creates a new entry rather than touching an old one.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry, generating an id when absent.
func (r *AuditRepository) Append(ctx context.Context, entry *AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `
		INSERT INTO report_approval_log
		    (id, report_name, reviewer, decision, sql_text, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ts
	`

	err := r.db.QueryRow(ctx, query,
		entry.ID,
		entry.ReportName,
		entry.User,
		entry.Decision,
		entry.SQLText,
		entry.Notes,
	).Scan(&entry.Timestamp)

	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to append audit entry")
	}

	return nil
}

// ListByReportName returns the decision trail for a report, oldest first.
func (r *AuditRepository) ListByReportName(ctx context.Context, reportName string) ([]*AuditEntry, error) {
	query := `
		SELECT id, report_name, reviewer, decision, sql_text, notes, ts
		FROM report_approval_log
		WHERE report_name = $1
		ORDER BY ts ASC
	`

	rows, err := r.db.Query(ctx, query, reportName)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to list audit entries")
	}
	defer rows.Close()

	entries := make([]*AuditEntry, 0)
	for rows.Next() {
		entry := &AuditEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.ReportName,
			&entry.User,
			&entry.Decision,
			&entry.SQLText,
			&entry.Notes,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan audit entry")
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
