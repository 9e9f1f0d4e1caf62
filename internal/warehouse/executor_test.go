package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findata/be-report-approval/internal/apperrors"
)

func TestExtractQueryBody(t *testing.T) {
	t.Run("plain select", func(t *testing.T) {
		body, err := extractQueryBody("SELECT 1")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", body)
	})

	t.Run("leading comment stripped", func(t *testing.T) {
		body, err := extractQueryBody("-- generated by model\nSELECT id FROM tx")
		require.NoError(t, err)
		assert.Equal(t, "SELECT id FROM tx", body)
	})

	t.Run("with clause", func(t *testing.T) {
		body, err := extractQueryBody("  WITH t AS (SELECT 1) SELECT * FROM t")
		require.NoError(t, err)
		assert.Equal(t, "WITH t AS (SELECT 1) SELECT * FROM t", body)
	})

	t.Run("trailing semicolon stripped", func(t *testing.T) {
		body, err := extractQueryBody("SELECT 1;\n")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", body)
	})

	t.Run("non-query rejected", func(t *testing.T) {
		_, err := extractQueryBody("DROP TABLE tx")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
	})

	t.Run("empty rejected", func(t *testing.T) {
		_, err := extractQueryBody("")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
	})
}
