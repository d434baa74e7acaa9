package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"modernc.org/sqlite"

	"github.com/ent0n29/hrdesk/internal/hr"
)

// foldFunc is a Unicode-aware lower(); SQLite's built-in one only folds ASCII.
const foldFunc = "hr_fold"

var registerFold = sync.OnceValue(func() error {
	return sqlite.RegisterDeterministicScalarFunction(foldFunc, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
})

// SQLiteStore persists HR requests in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating when needed) the database at dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	if err := registerFold(); err != nil {
		return nil, fmt.Errorf("register %s: %w", foldFunc, err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent inserts.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS hr_requests (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		duration TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		"date" TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_hr_requests_date ON hr_requests("date");
	CREATE INDEX IF NOT EXISTS idx_hr_requests_created ON hr_requests(created_at, id);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, req hr.Request) (hr.Request, error) {
	req = prepareInsert(req)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hr_requests (id, name, type, duration, reason, "date", created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.Name, string(req.Type), req.Duration, req.Reason, req.Date, req.CreatedAt.UnixNano(),
	)
	if err != nil {
		return hr.Request{}, fmt.Errorf("insert hr request: %w", err)
	}
	return req, nil
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]hr.Request, error) {
	query, args := buildSelect(sqliteDialect, q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query hr requests: %w", err)
	}
	defer rows.Close()

	out := make([]hr.Request, 0, 16)
	for rows.Next() {
		var (
			r       hr.Request
			reqType string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &reqType, &r.Duration, &r.Reason, &r.Date, &created); err != nil {
			return nil, fmt.Errorf("scan hr request row: %w", err)
		}
		r.Type = hr.RequestType(reqType)
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hr request rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Mode() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
