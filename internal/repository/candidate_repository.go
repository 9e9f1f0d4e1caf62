package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/findata/be-report-approval/internal/apperrors"
	"github.com/findata/be-report-approval/internal/database"
)

// CandidateRepository handles report candidate data operations.
type CandidateRepository struct {
	db *database.DB
}

// NewCandidateRepository creates a new candidate repository.
func NewCandidateRepository(db *database.DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

const candidateColumns = `
	id, report_name, prompt, generated_sql, kind,
	dataset_view, chart_type, filters, export_format, draft_paths,
	status, notes,
	created_by, created_at, updated_by, updated_at`

// Insert stores a new candidate, generating an id when absent. New
// candidates always start in PENDING.
func (r *CandidateRepository) Insert(ctx context.Context, c *Candidate) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Kind == "" {
		c.Kind = KindSQL
	}
	c.Status = StatusPending

	var filtersJSON []byte
	if c.Filters != nil {
		var err error
		filtersJSON, err = json.Marshal(c.Filters)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to marshal candidate filters")
		}
	}

	query := `
		INSERT INTO report_candidates
		    (id, report_name, prompt, generated_sql, kind,
		     dataset_view, chart_type, filters, export_format, draft_paths,
		     status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5,
		        $6, $7, $8, $9, $10,
		        $11, $12, $13)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		c.ID,
		c.ReportName,
		c.Prompt,
		c.GeneratedSQL,
		c.Kind,
		c.DatasetView,
		c.ChartType,
		filtersJSON,
		c.ExportFormat,
		c.DraftPaths,
		c.Status,
		c.Notes,
		c.CreatedBy,
	).Scan(&c.CreatedAt)

	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to insert candidate")
	}

	return nil
}

// GetByID retrieves a candidate by id.
func (r *CandidateRepository) GetByID(ctx context.Context, id string) (*Candidate, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_candidates WHERE id = $1`, candidateColumns)

	c, err := r.scanCandidate(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("candidate", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to get candidate")
	}
	return c, nil
}

// ListPending returns all PENDING candidates, oldest first. Oldest-first is
// the reviewer queue policy: candidates are reviewed in submission order.
func (r *CandidateRepository) ListPending(ctx context.Context) ([]*Candidate, error) {
	return r.ListByStatus(ctx, StatusPending)
}

// ListByStatus returns all candidates in the given status, oldest first.
func (r *CandidateRepository) ListByStatus(ctx context.Context, status CandidateStatus) ([]*Candidate, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidInput("status", fmt.Sprintf("unknown status %q", status))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM report_candidates
		WHERE status = $1
		ORDER BY created_at ASC
	`, candidateColumns)

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to list candidates")
	}
	defer rows.Close()

	candidates := make([]*Candidate, 0)
	for rows.Next() {
		c, err := r.scanCandidate(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan candidate")
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// UpdateStatus applies a guarded single-row status update. The WHERE clause
// enforces the transition table: PENDING may move anywhere, a terminal
// status may only be re-applied (retry support). Zero rows updated is
// disambiguated into NOT_FOUND or CONFLICT by a follow-up read.
func (r *CandidateRepository) UpdateStatus(ctx context.Context, id string, status CandidateStatus, updatedBy string, note *string) error {
	if !status.Valid() {
		return apperrors.InvalidInput("status", fmt.Sprintf("unknown status %q", status))
	}

	query := `
		UPDATE report_candidates
		SET status     = $2,
		    updated_by = $3,
		    updated_at = NOW(),
		    notes      = COALESCE($4, notes)
		WHERE id = $1
		  AND (status = 'PENDING' OR status = $2)
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, status, updatedBy, note).Scan(&returnedID)
	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to update candidate status")
	}

	var current CandidateStatus
	err = r.db.QueryRow(ctx, `SELECT status FROM report_candidates WHERE id = $1`, id).Scan(&current)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound("candidate", id)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "failed to read candidate status")
	}

	return apperrors.New(apperrors.ErrCodeConflict,
		fmt.Sprintf("cannot transition candidate from %s to %s", current, status))
}

// ── scan helper ───────────────────────────────────────────────────────────────

type candidateScanner interface {
	Scan(dest ...any) error
}

func (r *CandidateRepository) scanCandidate(sc candidateScanner) (*Candidate, error) {
	c := &Candidate{}
	var filtersJSON []byte

	err := sc.Scan(
		&c.ID,
		&c.ReportName,
		&c.Prompt,
		&c.GeneratedSQL,
		&c.Kind,
		&c.DatasetView,
		&c.ChartType,
		&filtersJSON,
		&c.ExportFormat,
		&c.DraftPaths,
		&c.Status,
		&c.Notes,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedBy,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if filtersJSON != nil {
		if err := json.Unmarshal(filtersJSON, &c.Filters); err != nil {
			return nil, fmt.Errorf("unmarshal candidate filters: %w", err)
		}
	}

	return c, nil
}
