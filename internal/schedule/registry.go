// Package schedule maintains the recurring prompt timers. Each stored
// job owns at most one live cron entry; replacing a job swaps its entry
// atomically so no job ever fires from two timers.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/internal/store"
	"github.com/haasonsaas/concierge/pkg/models"
)

// cronParser accepts standard 5-field expressions. Job specs are
// generated, never user-typed, so descriptors and seconds stay off.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// fireTimeout bounds one scheduled prompt run end to end, model rounds
// and delivery included.
const fireTimeout = 5 * time.Minute

// TriggerHandler executes one scheduled prompt fire: run the prompt,
// deliver the answer. Implementations own their failure handling; the
// registry only guarantees the timer fires.
type TriggerHandler interface {
	HandleScheduleTrigger(ctx context.Context, job *models.Job)
}

// TriggerHandlerFunc adapts a function to a TriggerHandler.
type TriggerHandlerFunc func(ctx context.Context, job *models.Job)

// HandleScheduleTrigger executes the handler function.
func (f TriggerHandlerFunc) HandleScheduleTrigger(ctx context.Context, job *models.Job) {
	f(ctx, job)
}

// Registry owns the live timers for recurring prompts. The store holds
// the durable job definitions; the registry holds their runtime cron
// entries and rebuilds them from the store on startup.
type Registry struct {
	store   store.Store
	handler TriggerHandler
	logger  *slog.Logger
	cron    *cron.Cron

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

// NewRegistry creates a schedule registry. The cron runner is created
// stopped; call Start once jobs are rebuilt.
func NewRegistry(st store.Store, handler TriggerHandler, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:   st,
		handler: handler,
		logger:  logger.With("component", "schedule"),
		cron:    cron.New(),
		entries: make(map[int64]cron.EntryID),
	}
}

// Start begins firing registered timers.
func (r *Registry) Start() {
	r.cron.Start()
}

// Stop halts the timers and waits for in-flight jobs to finish.
func (r *Registry) Stop() {
	<-r.cron.Stop().Done()
}

// RegisterOrReplace installs the timer for a job, replacing any prior
// timer under the same job id. The tenant's timezone is captured now;
// later timezone changes take effect only on re-registration.
//
// The cron spec is parsed before the old entry is removed, so a job whose new
// definition fails validation keeps its previous timer.
func (r *Registry) RegisterOrReplace(ctx context.Context, job *models.Job) error {
	tenant, err := r.store.GetTenant(ctx, job.TenantID)
	if err != nil {
		return err
	}

	spec := cronSpec(job, tenant.Timezone)
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return models.ErrValidation(fmt.Sprintf("job %d schedule %q", job.ID, spec), err)
	}

	snapshot := *job

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.entries[job.ID]; ok {
		r.cron.Remove(old)
	}
	r.entries[job.ID] = r.cron.Schedule(sched, cron.FuncJob(func() {
		r.fire(&snapshot)
	}))

	r.logger.Info("job scheduled",
		"job_id", job.ID,
		"tenant_id", job.TenantID,
		"spec", spec)
	return nil
}

// Cancel removes the job's timer. Cancelling an unregistered job is a
// no-op.
func (r *Registry) Cancel(jobID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[jobID]
	if !ok {
		return
	}
	r.cron.Remove(entry)
	delete(r.entries, jobID)
	r.logger.Info("job cancelled", "job_id", jobID)
}

// Registered reports whether the job currently owns a live timer.
func (r *Registry) Registered(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[jobID]
	return ok
}

// Len returns the number of live timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// fire invokes the trigger handler for one scheduled prompt. The
// handler owns run and delivery failures; nothing here may take down
// the timer.
func (r *Registry) fire(job *models.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()
	ctx = observability.AddRequestID(ctx, uuid.NewString())
	ctx = observability.AddTenantID(ctx, job.TenantID)

	r.logger.Info("job firing", "job_id", job.ID, "tenant_id", job.TenantID)
	r.handler.HandleScheduleTrigger(ctx, job)
}

// cronSpec renders the job's daily firing time in the tenant's
// timezone. An empty timezone falls back to UTC.
func cronSpec(job *models.Job, timezone string) string {
	if timezone == "" {
		timezone = "UTC"
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", timezone, job.Minute, job.Hour)
}
