package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/haasonsaas/concierge/pkg/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path and
// initializes the schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; keep the pool at one connection to
	// avoid SQLITE_BUSY under concurrent timer fires and message handlers.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS tenants (
			id TEXT PRIMARY KEY,
			system_instructions TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT 'UTC'
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL REFERENCES tenants(id),
			hour INTEGER NOT NULL CHECK (hour BETWEEN 0 AND 23),
			minute INTEGER NOT NULL CHECK (minute BETWEEN 0 AND 59),
			prompt TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_tenant ON jobs(tenant_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertTenant creates or updates a tenant row.
func (s *SQLiteStore) UpsertTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil || tenant.ID == "" {
		return fmt.Errorf("tenant id is required")
	}
	tz := tenant.Timezone
	if tz == "" {
		tz = "UTC"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, system_instructions, timezone)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			system_instructions = excluded.system_instructions,
			timezone = excluded.timezone`,
		tenant.ID, tenant.Instructions, tz,
	)
	if err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}
	return nil
}

// GetTenant retrieves a tenant by id.
func (s *SQLiteStore) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, system_instructions, timezone FROM tenants WHERE id = ?`, id,
	).Scan(&tenant.ID, &tenant.Instructions, &tenant.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound(fmt.Sprintf("tenant %s", id), err)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return tenant, nil
}

// CreateJob stores a job and assigns its ID.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *models.Job) error {
	if job == nil {
		return fmt.Errorf("job is required")
	}
	if err := validateJob(job); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (tenant_id, hour, minute, prompt) VALUES (?, ?, ?, ?)`,
		job.TenantID, job.Hour, job.Minute, job.Prompt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	job.ID = id
	return nil
}

// GetJob retrieves a job by id.
func (s *SQLiteStore) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	job := &models.Job{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, hour, minute, prompt FROM jobs WHERE id = ?`, id,
	).Scan(&job.ID, &job.TenantID, &job.Hour, &job.Minute, &job.Prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound(fmt.Sprintf("job %d", id), err)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateJob overwrites a stored job.
func (s *SQLiteStore) UpdateJob(ctx context.Context, job *models.Job) error {
	if job == nil {
		return fmt.Errorf("job is required")
	}
	if err := validateJob(job); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET tenant_id = ?, hour = ?, minute = ?, prompt = ? WHERE id = ?`,
		job.TenantID, job.Hour, job.Minute, job.Prompt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound(fmt.Sprintf("job %d", job.ID), nil)
	}
	return nil
}

// DeleteJob removes a job. Deleting an absent job succeeds.
func (s *SQLiteStore) DeleteJob(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// ListJobs returns all stored jobs ordered by id.
func (s *SQLiteStore) ListJobs(ctx context.Context) ([]*models.Job, error) {
	return s.listJobs(ctx, `SELECT id, tenant_id, hour, minute, prompt FROM jobs ORDER BY id`)
}

// ListJobsByTenant returns a tenant's jobs ordered by id.
func (s *SQLiteStore) ListJobsByTenant(ctx context.Context, tenantID string) ([]*models.Job, error) {
	return s.listJobs(ctx,
		`SELECT id, tenant_id, hour, minute, prompt FROM jobs WHERE tenant_id = ? ORDER BY id`,
		tenantID,
	)
}

func (s *SQLiteStore) listJobs(ctx context.Context, query string, args ...any) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job := &models.Job{}
		if err := rows.Scan(&job.ID, &job.TenantID, &job.Hour, &job.Minute, &job.Prompt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func validateJob(job *models.Job) error {
	if job.TenantID == "" {
		return fmt.Errorf("job tenant id is required")
	}
	if job.Hour < 0 || job.Hour > 23 {
		return fmt.Errorf("job hour %d out of range", job.Hour)
	}
	if job.Minute < 0 || job.Minute > 59 {
		return fmt.Errorf("job minute %d out of range", job.Minute)
	}
	return nil
}
