// Package store persists HR request records in the structured store.
package store

import (
	"context"
	"errors"

	"github.com/ent0n29/hrdesk/internal/hr"
)

var ErrUnsupportedURL = errors.New("unsupported database url")

// Order selects the row ordering of a read.
type Order int

const (
	// OrderInserted returns rows in first-seen (insertion) order.
	OrderInserted Order = iota
	// OrderDateDesc returns the most recent request date first.
	OrderDateDesc
)

// Query describes a filtered read. The zero value is a full scan.
type Query struct {
	Filters hr.Filters
	// ExactName restricts to a single employee, compared exactly.
	ExactName string
	Order     Order
	Limit     int
}

// Store inserts and reads HR request records. Records are never updated
// or deleted; concurrency control is left to the backend.
type Store interface {
	Insert(ctx context.Context, req hr.Request) (hr.Request, error)
	Query(ctx context.Context, q Query) ([]hr.Request, error)
	Ping(ctx context.Context) error
	Mode() string
	Close() error
}
