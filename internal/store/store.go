// Package store persists tenants and scheduled prompt jobs.
//
// The store is the single source of truth for tenant and job definitions;
// in-memory caches and timers elsewhere are rebuildable projections of it.
package store

import (
	"context"

	"github.com/haasonsaas/concierge/pkg/models"
)

// Store defines the persistence interface for tenants and jobs.
type Store interface {
	// UpsertTenant creates or updates a tenant row.
	UpsertTenant(ctx context.Context, tenant *models.Tenant) error

	// GetTenant retrieves a tenant by id. Returns a NOT_FOUND error if
	// the tenant does not exist.
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)

	// CreateJob stores a job and assigns its ID.
	CreateJob(ctx context.Context, job *models.Job) error

	// GetJob retrieves a job by id. Returns a NOT_FOUND error if absent.
	GetJob(ctx context.Context, id int64) (*models.Job, error)

	// UpdateJob overwrites a stored job. Returns a NOT_FOUND error if absent.
	UpdateJob(ctx context.Context, job *models.Job) error

	// DeleteJob removes a job. Deleting an absent job is a no-op.
	DeleteJob(ctx context.Context, id int64) error

	// ListJobs returns all stored jobs ordered by id.
	ListJobs(ctx context.Context) ([]*models.Job, error)

	// ListJobsByTenant returns a tenant's jobs ordered by id.
	ListJobsByTenant(ctx context.Context, tenantID string) ([]*models.Job, error)

	// Close releases store resources.
	Close() error
}
