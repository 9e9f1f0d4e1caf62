package warehouse

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/findata/be-report-approval/internal/apperrors"
	"github.com/findata/be-report-approval/internal/database"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(name string) bool {
	return identRe.MatchString(name)
}

// ValidQualifiedIdent accepts schema-qualified names like kyc_gold.fraud_q3.
func ValidQualifiedIdent(name string) bool {
	parts := strings.Split(name, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return false
	}
	for _, p := range parts {
		if !validIdent(p) {
			return false
		}
	}
	return true
}

// ViewManager materializes approved candidate SQL as named views under a
// fixed schema.
type ViewManager struct {
	db     *database.DB
	schema string
}

// NewViewManager creates a ViewManager publishing views under schema.
func NewViewManager(db *database.DB, schema string) *ViewManager {
	return &ViewManager{db: db, schema: schema}
}

// ViewName resolves the deterministic view name for a report. The report
// name must pass the identifier allow-list; it is interpolated into DDL and
// is the one input the workflow cannot parameterize.
func (m *ViewManager) ViewName(reportName string) (string, error) {
	if !validIdent(reportName) {
		return "", apperrors.InvalidInput("report_name",
			fmt.Sprintf("%q is not a valid identifier", reportName))
	}
	return fmt.Sprintf("%s.%s", m.schema, reportName), nil
}

// CreateOrReplace materializes the view from validated SQL. Replacing the
// whole definition is what makes concurrent approvals of the same candidate
// safe: the last writer wins with a complete definition, never a partial one.
func (m *ViewManager) CreateOrReplace(ctx context.Context, fullName, sqlText string) error {
	if !ValidQualifiedIdent(fullName) {
		return apperrors.InvalidInput("view", fmt.Sprintf("%q is not a valid identifier", fullName))
	}

	body, err := extractQueryBody(sqlText)
	if err != nil {
		return err
	}

	_, err = m.db.Exec(ctx, fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", fullName, body))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable,
			fmt.Sprintf("failed to materialize view %s", fullName))
	}

	return nil
}
