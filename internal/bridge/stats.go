package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/hrdesk/internal/hr"
	"github.com/ent0n29/hrdesk/internal/reliability"
	"github.com/ent0n29/hrdesk/internal/store"
)

var ErrInvalidFilter = errors.New("invalid statistics filter")

// Statistics are counts over a fresh read of the store.
type Statistics struct {
	TotalRequests int `json:"totalRequests"`
	LeaveRequests int `json:"leaveRequests"`
	SickLeave     int `json:"sickLeave"`
	LateArrivals  int `json:"lateArrivals"`
}

// StatsFilter optionally restricts statistics to a YYYY-MM month and a type.
type StatsFilter struct {
	Month string         `json:"month,omitempty"`
	Type  hr.RequestType `json:"type,omitempty"`
}

func (f StatsFilter) normalize() StatsFilter {
	f.Month = strings.TrimSpace(f.Month)
	f.Type = hr.RequestType(strings.TrimSpace(string(f.Type)))
	return f
}

func (f StatsFilter) cacheKey() string {
	return f.Month + "|" + string(f.Type)
}

// filters expands the month into the full calendar range.
func (f StatsFilter) filters() (hr.Filters, error) {
	out := hr.Filters{Type: f.Type}
	if f.Type != "" && !f.Type.Valid() {
		return hr.Filters{}, fmt.Errorf("%w: unknown type %q", ErrInvalidFilter, f.Type)
	}
	if f.Month != "" {
		start, end, err := hr.MonthRange(f.Month)
		if err != nil {
			return hr.Filters{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		out.StartDate, out.EndDate = start, end
	}
	return out, nil
}

// Aggregate counts rows by type.
func Aggregate(rows []hr.Request) Statistics {
	st := Statistics{TotalRequests: len(rows)}
	for _, r := range rows {
		switch r.Type {
		case hr.TypeLeave:
			st.LeaveRequests++
		case hr.TypeSickLeave:
			st.SickLeave++
		case hr.TypeLateArrival:
			st.LateArrivals++
		}
	}
	return st
}

// Statistics returns aggregate counts for f, served from cache until the
// next successful insert or the cache TTL.
func (s *Service) Statistics(ctx context.Context, f StatsFilter) (Statistics, error) {
	f = f.normalize()
	filters, err := f.filters()
	if err != nil {
		return Statistics{}, reliability.Wrap(reliability.KindRequest, err.Error(), err)
	}

	key := f.cacheKey()
	cached, gen, ok := s.cache.Get(ctx, key)
	if ok {
		return cached, nil
	}

	start := time.Now()
	rows, err := s.store.Query(ctx, store.Query{Filters: filters})
	s.metrics.ObserveStore("query", time.Since(start), err)
	if err != nil {
		s.log.WithError(err).Error("error fetching statistics")
		return Statistics{}, reliability.Wrap(reliability.KindStore, "statistics failed", err)
	}

	st := Aggregate(rows)
	s.cache.Set(ctx, key, gen, st)
	return st, nil
}
