package store

import (
	"context"
	"fmt"
	"strings"
)

// NewStore picks a backend from the database URL: postgres:// or
// postgresql:// for PostgreSQL, sqlite:<path> for SQLite, and an in-memory
// store when the URL is empty.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	u := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(u)
	switch {
	case u == "":
		return NewInMemoryStore(), nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return NewPostgresStore(ctx, u)
	case strings.HasPrefix(lower, "sqlite:"):
		path := u[len("sqlite:"):]
		path = strings.TrimPrefix(path, "//")
		if path == "" {
			return nil, fmt.Errorf("%w: sqlite url without a path", ErrUnsupportedURL)
		}
		return NewSQLiteStore(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, redactURL(u))
	}
}

func redactURL(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[:i+3] + "..."
	}
	return "..."
}
