// Package hr holds the HR request domain: records, query filters and
// calendar periods.
package hr

import (
	"errors"
	"strings"
	"time"
)

// RequestType is the closed set of request kinds the assistant may emit.
type RequestType string

const (
	TypeLeave       RequestType = "leave"
	TypeSickLeave   RequestType = "sick leave"
	TypeLateArrival RequestType = "late arrival"

	// TypeNotApplicable is the sentinel the model uses for "not a request".
	TypeNotApplicable RequestType = "N/A"
)

// DateLayout is the canonical date form for records and filters.
const DateLayout = "2006-01-02"

var (
	ErrMissingType = errors.New("request type missing")
	ErrUnknownType = errors.New("unknown request type")
	ErrMissingName = errors.New("employee name missing")
	ErrInvalidDate = errors.New("request date is not YYYY-MM-DD")
)

// Valid reports whether t belongs to the closed enumeration.
func (t RequestType) Valid() bool {
	switch t {
	case TypeLeave, TypeSickLeave, TypeLateArrival:
		return true
	default:
		return false
	}
}

// Label is the Spanish display label used in conversational results and reports.
func (t RequestType) Label() string {
	switch t {
	case TypeSickLeave:
		return "Incapacidad"
	case TypeLateArrival:
		return "Llegada tarde"
	default:
		return "Permiso"
	}
}

// Request is a single leave, sick-leave or late-arrival record.
type Request struct {
	ID        string      `json:"id,omitempty"`
	Name      string      `json:"name"`
	Type      RequestType `json:"type"`
	Duration  string      `json:"duration"`
	Reason    string      `json:"reason"`
	Date      string      `json:"date"`
	CreatedAt time.Time   `json:"created_at,omitzero"`
}

// Validate enforces the persistence invariant: a record is stored only
// when its type is present, not the N/A sentinel and inside the enumeration.
// A date, when given, must be canonical so range filters compare correctly.
func (r Request) Validate() error {
	t := RequestType(strings.TrimSpace(string(r.Type)))
	if t == "" || t == TypeNotApplicable {
		return ErrMissingType
	}
	if !t.Valid() {
		return ErrUnknownType
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if d := strings.TrimSpace(r.Date); d != "" && !ValidDate(d) {
		return ErrInvalidDate
	}
	return nil
}

// Normalize trims surrounding whitespace from every text field.
func (r Request) Normalize() Request {
	r.Name = strings.TrimSpace(r.Name)
	r.Type = RequestType(strings.TrimSpace(string(r.Type)))
	r.Duration = strings.TrimSpace(r.Duration)
	r.Reason = strings.TrimSpace(r.Reason)
	r.Date = strings.TrimSpace(r.Date)
	return r
}

// Filters constrain a read against the store. Empty fields are unconstrained.
type Filters struct {
	StartDate string      `json:"startDate,omitempty" jsonschema:"description=Inclusive lower bound (YYYY-MM-DD)"`
	EndDate   string      `json:"endDate,omitempty" jsonschema:"description=Inclusive upper bound (YYYY-MM-DD)"`
	Name      string      `json:"name,omitempty" jsonschema:"description=Case-insensitive substring of the employee name"`
	Type      RequestType `json:"type,omitempty" jsonschema:"enum=leave,enum=sick leave,enum=late arrival"`
}

// Normalize trims all filter fields.
func (f Filters) Normalize() Filters {
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
	f.Name = strings.TrimSpace(f.Name)
	f.Type = RequestType(strings.TrimSpace(string(f.Type)))
	return f
}

// IsZero reports whether no filter is set, i.e. a full scan.
func (f Filters) IsZero() bool {
	n := f.Normalize()
	return n.StartDate == "" && n.EndDate == "" && n.Name == "" && n.Type == ""
}

// Match applies the filter semantics in process. Store backends that push
// filters down to SQL must agree with it.
func (f Filters) Match(r Request) bool {
	f = f.Normalize()
	if f.StartDate != "" && r.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && r.Date > f.EndDate {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	return true
}

// QueryDirective asks for historical records.
type QueryDirective struct {
	Action  string  `json:"action" jsonschema:"enum=query"`
	Filters Filters `json:"filters"`
}

// ActionQuery is the directive action value.
const ActionQuery = "query"
