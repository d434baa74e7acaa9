package bridge

import (
	"fmt"
	"strings"

	"github.com/ent0n29/hrdesk/internal/hr"
)

// NoResultsMessage is returned verbatim when a query matches nothing.
const NoResultsMessage = "No se encontraron registros con los criterios especificados."

// FormatResults renders rows grouped by employee in first-seen order, one
// line per record.
func FormatResults(rows []hr.Request) string {
	if len(rows) == 0 {
		return NoResultsMessage
	}

	var order []string
	groups := make(map[string][]hr.Request)
	for _, r := range rows {
		if _, ok := groups[r.Name]; !ok {
			order = append(order, r.Name)
		}
		groups[r.Name] = append(groups[r.Name], r)
	}

	blocks := make([]string, 0, len(order))
	for _, name := range order {
		var b strings.Builder
		b.WriteString(name)
		b.WriteString(":")
		for _, r := range groups[name] {
			fmt.Fprintf(&b, "\n- %s (%s) el %s: %s", r.Type.Label(), r.Duration, r.Date, r.Reason)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}
