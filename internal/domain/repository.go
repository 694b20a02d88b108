package domain

import (
	"context"
	"time"
)

// Repository defines the interface for explanation audit persistence.
type Repository interface {
	// SaveExplanation stores one audit record.
	SaveExplanation(ctx context.Context, rec *ExplanationRecord) error

	// GetExplanation retrieves a record by ID.
	GetExplanation(ctx context.Context, id string) (*ExplanationRecord, error)

	// ListExplanations returns the most recent records, newest first.
	// An empty role matches all roles.
	ListExplanations(ctx context.Context, role Role, limit int) ([]*ExplanationRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
