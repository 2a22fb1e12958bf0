package notify

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"activity-signups/internal/models"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// AuditLog appends every roster event to a Postgres table. The registry
// never reads it back.
type AuditLog struct {
	db    *sql.DB
	table string
}

func NewAuditLog(db *sql.DB, table string) (*AuditLog, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid audit table name %q", table)
	}
	return &AuditLog{db: db, table: table}, nil
}

func (a *AuditLog) Name() string { return "audit" }

// EnsureSchema creates the audit table if it is missing.
func (a *AuditLog) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		event_type TEXT NOT NULL,
		activity TEXT NOT NULL,
		email TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL
	)`, a.table)
	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

func (a *AuditLog) Notify(ctx context.Context, event models.RosterEvent) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (id, event_type, activity, email, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		a.table,
	)
	_, err := a.db.ExecContext(ctx, query,
		event.ID, string(event.Type), event.Activity, event.Email, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}
