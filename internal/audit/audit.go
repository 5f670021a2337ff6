// Package audit records an operational log entry per /solve call,
// selected the way the teacher selects its Store
// (internal/api/server.go: DATABASE_URL unset picks an in-memory
// implementation, set picks Postgres via jackc/pgx/v5). Records are
// never read back into a solve; they exist for operators, not clients.
package audit

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Record is one completed /solve invocation.
type Record struct {
	ID                 string
	InstanceFingerprint string
	Policy             string
	UnservedPassengers int64
	MaintenanceViolation int64
	VehicleCount       int64
	OperatingCost      int64
	WallClock          time.Duration
	TimedOut           bool
	At                 time.Time
}

// Store is the persistence interface the /solve handler writes to.
type Store interface {
	RecordSolve(ctx context.Context, rec Record) error
	ListRecentSolves(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// New selects a backend from databaseURL exactly the way NewServer picks
// a Store in the teacher.
func New(databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewMemory(), nil
	}
	return NewPostgres(databaseURL)
}

// Memory keeps the most recent records in a ring buffer.
type Memory struct {
	mu      sync.Mutex
	records []Record
	cap     int
}

func NewMemory() *Memory {
	return &Memory{cap: 1000}
}

func (m *Memory) RecordSolve(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if len(m.records) > m.cap {
		m.records = m.records[len(m.records)-m.cap:]
	}
	return nil
}

func (m *Memory) ListRecentSolves(ctx context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	out := make([]Record, limit)
	copy(out, m.records[len(m.records)-limit:])
	return out, nil
}

func (m *Memory) Close() error { return nil }

// Postgres persists audit records via database/sql over pgx's stdlib
// driver, matching internal/store/postgres.go's connection idiom.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS solve_audit (
	id TEXT PRIMARY KEY,
	instance_fingerprint TEXT NOT NULL,
	policy TEXT NOT NULL,
	unserved_passengers BIGINT NOT NULL,
	maintenance_violation BIGINT NOT NULL,
	vehicle_count BIGINT NOT NULL,
	operating_cost BIGINT NOT NULL,
	wall_clock_ms BIGINT NOT NULL,
	timed_out BOOLEAN NOT NULL,
	at TIMESTAMPTZ NOT NULL
)`

func (p *Postgres) RecordSolve(ctx context.Context, rec Record) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO solve_audit (id, instance_fingerprint, policy, unserved_passengers,
			maintenance_violation, vehicle_count, operating_cost, wall_clock_ms, timed_out, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.InstanceFingerprint, rec.Policy, rec.UnservedPassengers,
		rec.MaintenanceViolation, rec.VehicleCount, rec.OperatingCost,
		rec.WallClock.Milliseconds(), rec.TimedOut, rec.At)
	return err
}

func (p *Postgres) ListRecentSolves(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, instance_fingerprint, policy, unserved_passengers, maintenance_violation,
			vehicle_count, operating_cost, wall_clock_ms, timed_out, at
		FROM solve_audit ORDER BY at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var wallClockMs int64
		if err := rows.Scan(&rec.ID, &rec.InstanceFingerprint, &rec.Policy, &rec.UnservedPassengers,
			&rec.MaintenanceViolation, &rec.VehicleCount, &rec.OperatingCost, &wallClockMs,
			&rec.TimedOut, &rec.At); err != nil {
			return nil, err
		}
		rec.WallClock = time.Duration(wallClockMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error { return p.db.Close() }
