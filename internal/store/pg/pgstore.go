// Package pg mirrors the complaint workflow into Postgres. The in-memory
// store stays authoritative at runtime; this package gives it durability
// across restarts.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"shagym.org/internal/workflow"
)

// Store persists complaints as one JSONB document per aggregate, with the
// version column guarding against stale writers.
type Store struct {
	db *sql.DB
}

var _ workflow.Persister = (*Store)(nil)

// Open connects to Postgres with pool settings sized for the API workload.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection. Test use only.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping verifies connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Save upserts the aggregate document. The version guard rejects writes
// that would move the row backwards or sideways; those surface as a
// concurrent modification so the caller can reconcile.
func (s *Store) Save(ctx context.Context, c workflow.Complaint) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode complaint %s: %w", c.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		insert into complaints (id, doc, version, updated_at)
		values ($1, $2, $3, now())
		on conflict (id) do update
		set doc = excluded.doc, version = excluded.version, updated_at = now()
		where complaints.version < excluded.version
	`, c.ID, doc, c.Version)
	if err != nil {
		return fmt.Errorf("save complaint %s: %w", c.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save complaint %s: %w", c.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: complaint %s at version %d", workflow.ErrConcurrentModification, c.ID, c.Version)
	}
	return nil
}

// LoadAll returns every persisted complaint in creation order.
func (s *Store) LoadAll(ctx context.Context) ([]workflow.Complaint, error) {
	rows, err := s.db.QueryContext(ctx, `
		select doc from complaints
		order by created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("load complaints: %w", err)
	}
	defer rows.Close()

	var out []workflow.Complaint
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		var c workflow.Complaint
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("decode complaint: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load complaints: %w", err)
	}
	return out, nil
}
