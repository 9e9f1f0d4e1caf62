package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findata/be-report-approval/internal/apperrors"
)

func TestViewName(t *testing.T) {
	m := NewViewManager(nil, "kyc_gold")

	name, err := m.ViewName("fraud_q3")
	require.NoError(t, err)
	assert.Equal(t, "kyc_gold.fraud_q3", name)

	for _, bad := range []string{"", "fraud-q3", "fraud q3", "3fraud", "x; DROP TABLE tx", "a.b"} {
		_, err := m.ViewName(bad)
		require.Error(t, err, "report name %q should be rejected", bad)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
	}
}

func TestValidQualifiedIdent(t *testing.T) {
	assert.True(t, ValidQualifiedIdent("fraud_q3"))
	assert.True(t, ValidQualifiedIdent("kyc_gold.fraud_q3"))
	assert.True(t, ValidQualifiedIdent("finance.kyc_gold.fraud_q3"))

	assert.False(t, ValidQualifiedIdent(""))
	assert.False(t, ValidQualifiedIdent("a.b.c.d"))
	assert.False(t, ValidQualifiedIdent("kyc_gold.fraud-q3"))
	assert.False(t, ValidQualifiedIdent("kyc_gold..fraud_q3"))
	assert.False(t, ValidQualifiedIdent("kyc_gold.fraud_q3; DROP VIEW x"))
}
