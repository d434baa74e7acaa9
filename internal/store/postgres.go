package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ent0n29/hrdesk/internal/hr"
)

// PostgresStore persists HR requests in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hr_requests (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			duration TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			"date" TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_hr_requests_date ON hr_requests ("date");`,
		`CREATE INDEX IF NOT EXISTS idx_hr_requests_created ON hr_requests (created_at, id);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, req hr.Request) (hr.Request, error) {
	req = prepareInsert(req)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO hr_requests (id, name, type, duration, reason, "date", created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID,
		req.Name,
		string(req.Type),
		req.Duration,
		req.Reason,
		req.Date,
		req.CreatedAt,
	)
	if err != nil {
		return hr.Request{}, fmt.Errorf("insert hr request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) Query(ctx context.Context, q Query) ([]hr.Request, error) {
	sql, args := buildSelect(postgresDialect, q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query hr requests: %w", err)
	}
	defer rows.Close()

	out := make([]hr.Request, 0, 16)
	for rows.Next() {
		r, err := scanPostgresRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hr request row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hr request rows: %w", err)
	}
	return out, nil
}

func scanPostgresRow(rows pgx.Rows) (hr.Request, error) {
	var (
		r       hr.Request
		reqType string
		created time.Time
	)
	if err := rows.Scan(&r.ID, &r.Name, &reqType, &r.Duration, &r.Reason, &r.Date, &created); err != nil {
		return hr.Request{}, err
	}
	r.Type = hr.RequestType(reqType)
	r.CreatedAt = created.UTC()
	return r, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// prepareInsert normalizes text fields and assigns the id and creation time.
func prepareInsert(req hr.Request) hr.Request {
	req = req.Normalize()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	return req
}
