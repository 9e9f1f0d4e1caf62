package warehouse

import (
	"regexp"
	"strings"
)

var (
	aggregateRe = regexp.MustCompile(`(?i)\b(avg|sum|min|max|count)\s*\([^)]*\)`)
	nonAlnumRe  = regexp.MustCompile(`[^0-9a-zA-Z]+`)
)

// NormalizeAliases appends a generated column alias to every aggregate
// expression that lacks one. Downstream consumers of materialized views
// require named columns, and generated SQL frequently leaves aggregates
// anonymous. The alias is derived from the aggregate expression itself:
// lowercased, runs of non-alphanumerics collapsed to "_", e.g.
// SUM(amount) -> SUM(amount) AS sum_amount.
func NormalizeAliases(sql string) string {
	locs := aggregateRe.FindAllStringIndex(sql, -1)
	if locs == nil {
		return sql
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(sql[last:loc[0]])
		expr := sql[loc[0]:loc[1]]
		b.WriteString(expr)
		if !hasExplicitAlias(sql[loc[1]:]) {
			b.WriteString(" AS ")
			b.WriteString(aliasFor(expr))
		}
		last = loc[1]
	}
	b.WriteString(sql[last:])

	return b.String()
}

func aliasFor(expr string) string {
	alias := nonAlnumRe.ReplaceAllString(strings.ToLower(expr), "_")
	return strings.Trim(alias, "_")
}

// hasExplicitAlias reports whether rest begins with an AS keyword.
func hasExplicitAlias(rest string) bool {
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	if len(trimmed) < 2 || !strings.EqualFold(trimmed[:2], "as") {
		return false
	}
	return len(trimmed) == 2 || !isIdentChar(trimmed[2])
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
