// Package bridge connects parsed assistant payloads to the structured
// store: inserts, historical queries and aggregate statistics.
package bridge

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ent0n29/hrdesk/internal/hr"
	"github.com/ent0n29/hrdesk/internal/observability"
	"github.com/ent0n29/hrdesk/internal/reliability"
	"github.com/ent0n29/hrdesk/internal/store"
)

// Service is safe for concurrent use; all shared state lives in the store
// and the statistics cache.
type Service struct {
	store   store.Store
	cache   StatsCache
	metrics *observability.Metrics
	log     logrus.FieldLogger
}

// NewService builds a bridge. A nil cache disables statistics caching.
func NewService(st store.Store, cache StatsCache, metrics *observability.Metrics, log logrus.FieldLogger) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:   st,
		cache:   cache,
		metrics: metrics,
		log:     log.WithField("component", "bridge"),
	}
}

// Save performs one insert attempt. Failures are logged and reported as
// false; the caller never sees the store error.
func (s *Service) Save(ctx context.Context, req hr.Request) (hr.Request, bool) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		s.log.WithError(err).WithField("type", req.Type).Warn("refusing to save invalid request")
		return hr.Request{}, false
	}

	start := time.Now()
	saved, err := s.store.Insert(ctx, req)
	s.metrics.ObserveStore("insert", time.Since(start), err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"name": req.Name,
			"type": req.Type,
		}).Error("error saving request")
		return hr.Request{}, false
	}

	s.cache.Invalidate(ctx)
	s.metrics.ObserveSaved(string(saved.Type))
	s.log.WithFields(logrus.Fields{
		"id":   saved.ID,
		"type": saved.Type,
		"date": saved.Date,
	}).Info("request saved")
	return saved, true
}

// Query reads records matching filters in first-seen order. Store failures
// surface as store_error.
func (s *Service) Query(ctx context.Context, filters hr.Filters) ([]hr.Request, error) {
	start := time.Now()
	rows, err := s.store.Query(ctx, store.Query{Filters: filters.Normalize(), Order: store.OrderInserted})
	s.metrics.ObserveStore("query", time.Since(start), err)
	if err != nil {
		s.log.WithError(err).Error("error querying requests")
		return nil, reliability.Wrap(reliability.KindStore, "query failed", err)
	}
	return rows, nil
}
