package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAliases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare sum gets alias",
			in:   "SELECT region, SUM(amount) FROM tx GROUP BY region",
			want: "SELECT region, SUM(amount) AS sum_amount FROM tx GROUP BY region",
		},
		{
			name: "existing alias untouched",
			in:   "SELECT SUM(amount) AS total FROM tx",
			want: "SELECT SUM(amount) AS total FROM tx",
		},
		{
			name: "lowercase as recognized",
			in:   "SELECT sum(amount) as total FROM tx",
			want: "SELECT sum(amount) as total FROM tx",
		},
		{
			name: "multiple aggregates",
			in:   "SELECT AVG(score), MAX(score) FROM results",
			want: "SELECT AVG(score) AS avg_score, MAX(score) AS max_score FROM results",
		},
		{
			name: "count star",
			in:   "SELECT COUNT(*) FROM tx",
			want: "SELECT COUNT(*) AS count FROM tx",
		},
		{
			name: "qualified column",
			in:   "SELECT MIN(t.created_at) FROM tx t",
			want: "SELECT MIN(t.created_at) AS min_t_created_at FROM tx t",
		},
		{
			name: "no aggregates",
			in:   "SELECT id, name FROM reports",
			want: "SELECT id, name FROM reports",
		},
		{
			name: "column named ascent not treated as alias",
			in:   "SELECT SUM(amount), ascent FROM climbs",
			want: "SELECT SUM(amount) AS sum_amount, ascent FROM climbs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAliases(tt.in))
		})
	}
}
