package warehouse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/findata/be-report-approval/internal/apperrors"
	"github.com/findata/be-report-approval/internal/database"
)

// Result is a tabular query result.
type Result struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Executor runs read-only SQL against the warehouse.
type Executor struct {
	db           *database.DB
	previewLimit int
}

// NewExecutor creates an Executor. previewLimit is the default row cap for
// previews when the caller does not supply one.
func NewExecutor(db *database.DB, previewLimit int) *Executor {
	if previewLimit <= 0 {
		previewLimit = 20
	}
	return &Executor{db: db, previewLimit: previewLimit}
}

var queryStartRe = regexp.MustCompile(`(?i)\b(WITH|SELECT)\b`)

// classifyQueryErr separates SQL-level failures (the query is wrong) from
// connectivity failures (the warehouse is unreachable, safe to retry).
func classifyQueryErr(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, msg)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, msg)
}

// extractQueryBody returns the query from the first WITH or SELECT keyword
// onward, discarding any leading preamble or comments that would break a
// wrapping top-N query. Trailing semicolons are stripped for the same
// reason.
func extractQueryBody(sqlText string) (string, error) {
	loc := queryStartRe.FindStringIndex(sqlText)
	if loc == nil {
		return "", apperrors.New(apperrors.ErrCodeValidation,
			"statement is not a query: no SELECT or WITH clause found")
	}
	body := strings.TrimSpace(sqlText[loc[0]:])
	body = strings.TrimRight(body, "; \t\r\n")
	if body == "" {
		return "", apperrors.New(apperrors.ErrCodeValidation, "statement is empty")
	}
	return body, nil
}

// Execute runs a query and returns all rows and column names.
func (e *Executor) Execute(ctx context.Context, sqlText string) (*Result, error) {
	rows, err := e.db.Query(ctx, sqlText)
	if err != nil {
		return nil, classifyQueryErr(err, "query failed")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	result := &Result{Columns: columns, Rows: make([][]interface{}, 0)}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to read result row")
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryErr(err, "query failed")
	}

	return result, nil
}

// Preview runs the candidate query wrapped in a row-limited subselect.
// limit <= 0 falls back to the configured default. Never mutates state and
// may be retried freely.
func (e *Executor) Preview(ctx context.Context, sqlText string, limit int) (*Result, error) {
	body, err := extractQueryBody(sqlText)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.previewLimit
	}

	return e.Execute(ctx, fmt.Sprintf("SELECT * FROM (%s) q LIMIT %d", body, limit))
}

// Validate plans the query without producing output. Used before view
// materialization so a broken candidate aborts with zero writes.
func (e *Executor) Validate(ctx context.Context, sqlText string) error {
	body, err := extractQueryBody(sqlText)
	if err != nil {
		return err
	}

	rows, err := e.db.Query(ctx, "EXPLAIN "+body)
	if err != nil {
		return classifyQueryErr(err, "query failed to plan")
	}
	defer rows.Close()

	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return classifyQueryErr(err, "query failed to plan")
	}

	return nil
}

// PeekDataset returns the first rows of a named dataset view. The name is
// checked against the identifier allow-list before interpolation.
func (e *Executor) PeekDataset(ctx context.Context, viewName string, limit int) (*Result, error) {
	if !ValidQualifiedIdent(viewName) {
		return nil, apperrors.InvalidInput("dataset_view", fmt.Sprintf("%q is not a valid identifier", viewName))
	}
	if limit <= 0 {
		limit = e.previewLimit
	}

	return e.Execute(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", viewName, limit))
}
