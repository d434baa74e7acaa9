package hr

import (
	"fmt"
	"strings"
	"time"
)

const monthLayout = "2006-01"

var spanishMonths = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthRange expands a YYYY-MM month into its first and last calendar day.
func MonthRange(month string) (start, end string, err error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(month))
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q: expected YYYY-MM", month)
	}
	last := t.AddDate(0, 1, -1)
	return t.Format(DateLayout), last.Format(DateLayout), nil
}

// MonthLabel renders a YYYY-MM month as e.g. "Enero 2025".
func MonthLabel(month string) string {
	t, err := time.Parse(monthLayout, strings.TrimSpace(month))
	if err != nil {
		return month
	}
	return fmt.Sprintf("%s %d", spanishMonths[t.Month()-1], t.Year())
}

// ValidDate reports whether s is a canonical YYYY-MM-DD date. time.Parse
// accepts only two-digit months and days for this layout.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
