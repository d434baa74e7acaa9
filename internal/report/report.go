// Package report builds filtered HR request reports for the presentation
// layer.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ent0n29/hrdesk/internal/hr"
	"github.com/ent0n29/hrdesk/internal/store"
)

// All is the selector value meaning "no filter" on a dimension.
const All = "all"

var (
	ErrNoFilter      = errors.New("select at least one filter (month, type or employee)")
	ErrInvalidFilter = errors.New("invalid report filter")
)

// Filter selects report rows. Empty or "all" leaves a dimension open.
type Filter struct {
	Month    string `json:"month,omitempty"`
	Type     string `json:"type,omitempty"`
	Employee string `json:"employee,omitempty"`
}

func (f Filter) normalize() Filter {
	clean := func(s string) string {
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, All) {
			return ""
		}
		return s
	}
	return Filter{Month: clean(f.Month), Type: clean(f.Type), Employee: clean(f.Employee)}
}

type Row struct {
	hr.Request
	Label string `json:"label"`
}

type Group struct {
	Name     string `json:"name"`
	Requests []Row  `json:"requests"`
}

type Report struct {
	Title       string  `json:"title"`
	Period      string  `json:"period"`
	Filter      Filter  `json:"filter"`
	Rows        []Row   `json:"rows"`
	Groups      []Group `json:"groups"`
	Total       int     `json:"total"`
	GeneratedAt string  `json:"generatedAt"`
	// FileName is the suggested export name for the rendered report.
	FileName string `json:"fileName"`
}

// Build reads the rows selected by f, most recent date first.
func Build(ctx context.Context, st store.Store, f Filter) (Report, error) {
	f = f.normalize()
	if f.Month == "" && f.Type == "" && f.Employee == "" {
		return Report{}, ErrNoFilter
	}

	q := store.Query{ExactName: f.Employee, Order: store.OrderDateDesc}
	if f.Type != "" {
		t := hr.RequestType(f.Type)
		if !t.Valid() {
			return Report{}, fmt.Errorf("%w: unknown type %q", ErrInvalidFilter, f.Type)
		}
		q.Filters.Type = t
	}
	if f.Month != "" {
		start, end, err := hr.MonthRange(f.Month)
		if err != nil {
			return Report{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		q.Filters.StartDate, q.Filters.EndDate = start, end
	}

	records, err := st.Query(ctx, q)
	if err != nil {
		return Report{}, fmt.Errorf("build report: %w", err)
	}

	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{Request: r, Label: r.Type.Label()})
	}

	return Report{
		Title:       "Reporte de " + typeTitle(f.Type),
		Period:      periodLabel(f),
		Filter:      f,
		Rows:        rows,
		Groups:      groupByName(rows),
		Total:       len(rows),
		GeneratedAt: time.Now().UTC().Format(hr.DateLayout),
		FileName:    fileName(f),
	}, nil
}

// Employees returns the distinct employee names on record, sorted.
func Employees(ctx context.Context, st store.Store) ([]string, error) {
	records, err := st.Query(ctx, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	seen := make(map[string]struct{}, len(records))
	names := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names, nil
}

func typeTitle(t string) string {
	switch hr.RequestType(t) {
	case hr.TypeLeave:
		return "Permisos"
	case hr.TypeSickLeave:
		return "Incapacidades"
	case hr.TypeLateArrival:
		return "Llegadas tarde"
	default:
		return "Solicitudes"
	}
}

func periodLabel(f Filter) string {
	label := "Todos los meses"
	if f.Month != "" {
		label = hr.MonthLabel(f.Month)
	}
	if f.Employee != "" {
		label += " - " + f.Employee
	}
	return label
}

func fileName(f Filter) string {
	month := "Todos_los_meses"
	if f.Month != "" {
		month = hr.MonthLabel(f.Month)
	}
	employee := ""
	if f.Employee != "" {
		employee = "_" + f.Employee
	}
	return fmt.Sprintf("Reporte_%s%s_%s.pdf", strings.ReplaceAll(typeTitle(f.Type), " ", "_"), employee, month)
}

// groupByName keeps the first-seen order of employees in rows.
func groupByName(rows []Row) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, r := range rows {
		i, ok := index[r.Name]
		if !ok {
			i = len(groups)
			index[r.Name] = i
			groups = append(groups, Group{Name: r.Name})
		}
		groups[i].Requests = append(groups[i].Requests, r)
	}
	return groups
}
