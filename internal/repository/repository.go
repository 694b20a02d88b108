// Package repository provides audit-trail persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/opensource-finance/capintel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveExplanation stores one audit record.
func (r *SQLRepository) SaveExplanation(ctx context.Context, rec *domain.ExplanationRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: record with id is required", ErrInvalidInput)
	}

	drivers, _ := json.Marshal(rec.KeyDrivers)

	query := `
		INSERT INTO explanations (
			id, role, decision, risk_score, key_drivers,
			explanation, status, trace_id, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, string(rec.Role), string(rec.Decision),
		rec.RiskScore, string(drivers),
		rec.Explanation, rec.Status, rec.TraceID,
		rec.DurationMs, rec.CreatedAt,
	)
	return err
}

// GetExplanation retrieves a record by ID.
func (r *SQLRepository) GetExplanation(ctx context.Context, id string) (*domain.ExplanationRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, role, decision, risk_score, key_drivers,
			   explanation, status, trace_id, duration_ms, created_at
		FROM explanations
		WHERE id = ?
	`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListExplanations returns the most recent records, newest first.
// An empty role matches all roles.
func (r *SQLRepository) ListExplanations(ctx context.Context, role domain.Role, limit int) ([]*domain.ExplanationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, role, decision, risk_score, key_drivers,
			   explanation, status, trace_id, duration_ms, created_at
		FROM explanations
	`
	args := []interface{}{}

	if role != "" {
		query += " WHERE role = ?"
		args = append(args, string(role))
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ExplanationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Ping checks the database connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*domain.ExplanationRecord, error) {
	var rec domain.ExplanationRecord
	var role, decision, drivers string
	var explanation, traceID sql.NullString

	err := s.Scan(
		&rec.ID, &role, &decision, &rec.RiskScore, &drivers,
		&explanation, &rec.Status, &traceID,
		&rec.DurationMs, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Role = domain.Role(role)
	rec.Decision = domain.Decision(decision)
	rec.Explanation = explanation.String
	rec.TraceID = traceID.String

	if drivers != "" {
		if err := json.Unmarshal([]byte(drivers), &rec.KeyDrivers); err != nil {
			return nil, fmt.Errorf("failed to decode key drivers: %w", err)
		}
	}
	if rec.KeyDrivers == nil {
		rec.KeyDrivers = []string{}
	}

	return &rec, nil
}

// rebind converts ? placeholders to $N for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
