package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/opscart/node-placeholder-scaler/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn and applies the schema
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema, err := postgresFS.ReadFile("migrations/001_decisions.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SaveDecision inserts d, assigning an id and timestamp when missing
func (s *PostgresStore) SaveDecision(ctx context.Context, d *models.Decision) error {
	prepareDecision(d)

	query := `
		INSERT INTO decisions (
			id, pool, current_replicas, desired_replicas, action,
			fits, reason, events, dry_run, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.Pool, d.CurrentReplicas, d.DesiredReplicas, string(d.Action),
		d.Fits, d.Reason, pq.Array(d.Events), d.DryRun, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

const selectDecision = `
	SELECT id, pool, current_replicas, desired_replicas, action,
		fits, reason, events, dry_run, created_at
	FROM decisions
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*models.Decision, error) {
	var d models.Decision
	var action string
	var events pq.StringArray
	if err := row.Scan(
		&d.ID, &d.Pool, &d.CurrentReplicas, &d.DesiredReplicas, &action,
		&d.Fits, &d.Reason, &events, &d.DryRun, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	d.Action = models.PlanAction(action)
	d.Events = []string(events)
	return &d, nil
}

// GetDecision retrieves a decision by id
func (s *PostgresStore) GetDecision(ctx context.Context, id string) (*models.Decision, error) {
	d, err := scanDecision(s.db.QueryRowContext(ctx, selectDecision+"WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return d, nil
}

// ListDecisions lists decisions, newest first
func (s *PostgresStore) ListDecisions(ctx context.Context, pool string, limit int) ([]*models.Decision, error) {
	if limit <= 0 {
		limit = 50
	}

	query := selectDecision + "WHERE ($1 = '' OR pool = $1) ORDER BY created_at DESC LIMIT $2"
	rows, err := s.db.QueryContext(ctx, query, pool, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func prepareDecision(d *models.Decision) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.Events == nil {
		d.Events = []string{}
	}
}
