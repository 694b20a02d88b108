package repository

// Schema definitions for the CAPINTEL audit trail.
// Compatible with both SQLite and PostgreSQL.

const schemaExplanations = `
CREATE TABLE IF NOT EXISTS explanations (
    id TEXT PRIMARY KEY,
    role TEXT NOT NULL,
    decision TEXT NOT NULL,
    risk_score REAL NOT NULL,
    key_drivers TEXT NOT NULL,
    explanation TEXT,
    status TEXT NOT NULL,
    trace_id TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_explanations_role ON explanations(role, created_at);
CREATE INDEX IF NOT EXISTS idx_explanations_created ON explanations(created_at);
`

// AllSchemas returns every schema statement block in creation order.
func AllSchemas() []string {
	return []string{
		schemaExplanations,
	}
}
