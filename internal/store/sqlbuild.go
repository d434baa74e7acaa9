package store

import (
	"fmt"
	"strings"
)

// dialect captures the few places where postgres and sqlite SQL differ.
type dialect struct {
	placeholder func(n int) string
	// nameMatch renders a case-insensitive LIKE against the given placeholder.
	nameMatch func(ph string) string
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	nameMatch:   func(ph string) string { return "name ILIKE " + ph + ` ESCAPE '\'` },
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	nameMatch:   func(ph string) string { return foldFunc + "(name) LIKE " + foldFunc + "(" + ph + `) ESCAPE '\'` },
}

const selectColumns = `SELECT id, name, type, duration, reason, "date", created_at FROM hr_requests`

// buildSelect renders the SELECT for q and its positional arguments.
func buildSelect(d dialect, q Query) (string, []any) {
	f := q.Filters.Normalize()
	var (
		where []string
		args  []any
	)
	add := func(clause func(ph string) string, arg any) {
		args = append(args, arg)
		where = append(where, clause(d.placeholder(len(args))))
	}

	if f.StartDate != "" {
		add(func(ph string) string { return `"date" >= ` + ph }, f.StartDate)
	}
	if f.EndDate != "" {
		add(func(ph string) string { return `"date" <= ` + ph }, f.EndDate)
	}
	if f.Name != "" {
		add(d.nameMatch, "%"+escapeLike(f.Name)+"%")
	}
	if f.Type != "" {
		add(func(ph string) string { return "type = " + ph }, string(f.Type))
	}
	if name := strings.TrimSpace(q.ExactName); name != "" {
		add(func(ph string) string { return "name = " + ph }, name)
	}

	var sb strings.Builder
	sb.WriteString(selectColumns)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	switch q.Order {
	case OrderDateDesc:
		sb.WriteString(` ORDER BY "date" DESC, created_at ASC, id ASC`)
	default:
		sb.WriteString(" ORDER BY created_at ASC, id ASC")
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(" LIMIT " + d.placeholder(len(args)))
	}
	return sb.String(), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
