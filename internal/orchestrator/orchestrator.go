// Package orchestrator wires the transport, the session manager, the
// run processor, and the schedule registry into the chat service. It
// owns the inbound message loop and the prompt scheduling API.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/internal/schedule"
	"github.com/haasonsaas/concierge/internal/store"
	"github.com/haasonsaas/concierge/internal/transport"
	"github.com/haasonsaas/concierge/pkg/models"
)

// handleTimeout bounds one interactive message end to end.
const handleTimeout = 5 * time.Minute

// Config holds orchestrator settings.
type Config struct {
	// PresenceInterval is the delay between typing indicators while a
	// run is resolving. Defaults to 5 seconds.
	PresenceInterval time.Duration
}

// Orchestrator is the service façade. One instance serves all tenants.
type Orchestrator struct {
	store     store.Store
	sessions  *agent.Sessions
	processor *agent.Processor
	locks     *agent.RunLocks
	schedules *schedule.Registry
	transport transport.Transport
	logger    *slog.Logger
	config    Config

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates the orchestrator. The schedule registry is injected
// afterwards via SetSchedules because it needs this orchestrator as its
// trigger handler.
func New(st store.Store, sessions *agent.Sessions, processor *agent.Processor, tp transport.Transport, logger *slog.Logger, config Config) *Orchestrator {
	if config.PresenceInterval <= 0 {
		config.PresenceInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     st,
		sessions:  sessions,
		processor: processor,
		locks:     agent.NewRunLocks(),
		transport: tp,
		logger:    logger.With("component", "orchestrator"),
		config:    config,
	}
}

// SetSchedules injects the schedule registry. Must be called before
// Start.
func (o *Orchestrator) SetSchedules(schedules *schedule.Registry) {
	o.schedules = schedules
}

// Start begins the transport receive loop and the schedule timers.
// Rebuild should be called first so persisted jobs have live timers.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	if err := o.transport.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("start transport: %w", err)
	}
	o.schedules.Start()

	o.wg.Add(1)
	go o.messageLoop(ctx)

	o.logger.Info("orchestrator started")
	return nil
}

// Stop shuts down the message loop, the transport, and the timers,
// waiting for in-flight runs to finish.
func (o *Orchestrator) Stop(ctx context.Context) error {
	// Stop inbound flow and timers first so in-flight runs can finish
	// before the run context is cancelled.
	err := o.transport.Stop(ctx)
	o.schedules.Stop()
	o.wg.Wait()
	if o.cancel != nil {
		o.cancel()
	}
	o.logger.Info("orchestrator stopped")
	return err
}

// messageLoop consumes inbound messages until the transport closes its
// channel. Each message is handled in its own goroutine; per-tenant
// serialization happens inside HandleMessage.
func (o *Orchestrator) messageLoop(ctx context.Context) {
	defer o.wg.Done()
	for inbound := range o.transport.Messages() {
		o.wg.Add(1)
		go func(msg *models.Inbound) {
			defer o.wg.Done()
			o.handleInbound(ctx, msg)
		}(inbound)
	}
}

func (o *Orchestrator) handleInbound(ctx context.Context, msg *models.Inbound) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()
	ctx = observability.AddRequestID(ctx, uuid.NewString())
	ctx = observability.AddTenantID(ctx, msg.TenantID)
	logger := observability.WithContext(ctx, o.logger)

	answer, err := o.HandleMessage(ctx, msg.TenantID, msg.Text)
	if err != nil && answer == "" {
		logger.Error("message handling failed", "error", err)
		return
	}
	if err != nil {
		// Upstream run failures still carry a user-facing message.
		logger.Warn("run failed, delivering failure notice", "error", err)
	}
	if answer == "" {
		logger.Info("run produced no answer")
		return
	}
	if err := o.transport.Deliver(ctx, msg.TenantID, answer); err != nil {
		logger.Error("answer delivery failed", "error", err)
	}
}

// HandleMessage resolves one interactive tenant message to an answer.
// Runs for the same tenant are strictly serialized; a second message
// waits for the first run to finish. On upstream run failure the
// returned text is a user-facing failure notice alongside the error.
func (o *Orchestrator) HandleMessage(ctx context.Context, tenantID, text string) (string, error) {
	release := o.locks.Lock(tenantID)
	defer release()

	agentID, err := o.sessions.Agent(ctx, tenantID)
	if err != nil {
		return "", err
	}
	threadID, err := o.sessions.InteractiveThread(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if err := o.sessions.Client().AppendUserMessage(ctx, threadID, text); err != nil {
		return "", fmt.Errorf("append message: %w", err)
	}

	stopPresence := o.startPresence(ctx, tenantID)
	defer stopPresence()

	return o.processor.Resolve(ctx, threadID, agentID)
}

// startPresence shows a typing indicator immediately and then on every
// presence interval until the returned stop function is called.
// Presence failures are logged and never interrupt the run.
func (o *Orchestrator) startPresence(ctx context.Context, tenantID string) func() {
	done := make(chan struct{})
	var once sync.Once

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.config.PresenceInterval)
		defer ticker.Stop()

		send := func() {
			if err := o.transport.SendPresence(ctx, tenantID); err != nil {
				o.logger.Debug("presence failed", "tenant_id", tenantID, "error", err)
			}
		}
		send()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				send()
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// RunScheduledPrompt resolves a scheduled prompt on a fresh ephemeral
// thread. Scheduled runs never touch the tenant's interactive thread
// and therefore do not contend with interactive messages.
func (o *Orchestrator) RunScheduledPrompt(ctx context.Context, tenantID, prompt string) (string, error) {
	agentID, err := o.sessions.Agent(ctx, tenantID)
	if err != nil {
		return "", err
	}
	threadID, err := o.sessions.EphemeralThread(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if err := o.sessions.Client().AppendUserMessage(ctx, threadID, prompt); err != nil {
		return "", fmt.Errorf("append scheduled prompt: %w", err)
	}
	return o.processor.Resolve(ctx, threadID, agentID)
}

// HandleScheduleTrigger resolves a fired job's prompt and delivers the
// answer to the tenant's chat. Run and delivery failures are logged and
// swallowed without retry; upstream run failures still deliver their
// user-facing failure notice.
func (o *Orchestrator) HandleScheduleTrigger(ctx context.Context, job *models.Job) {
	logger := observability.WithContext(ctx, o.logger).With("job_id", job.ID)

	text, err := o.RunScheduledPrompt(ctx, job.TenantID, job.Prompt)
	if err != nil && text == "" {
		logger.Error("scheduled run failed", "error", err)
		return
	}
	if err != nil {
		logger.Warn("scheduled run failed, delivering failure notice", "error", err)
	}
	if text == "" {
		logger.Info("scheduled run produced no answer")
		return
	}
	if err := o.transport.Deliver(ctx, job.TenantID, text); err != nil {
		logger.Error("scheduled delivery failed", "error", err)
	}
}

// UpsertTenant stores the tenant and propagates changed instructions to
// any already-created agent in place.
func (o *Orchestrator) UpsertTenant(ctx context.Context, tenant *models.Tenant) error {
	if err := o.store.UpsertTenant(ctx, tenant); err != nil {
		return err
	}
	return o.sessions.UpdateInstructions(ctx, tenant.ID, tenant.Instructions)
}

// RegisterPrompt persists a recurring prompt and installs its timer.
// The tenant must exist; hour and minute are validated by the store.
func (o *Orchestrator) RegisterPrompt(ctx context.Context, tenantID string, hour, minute int, prompt string) (*models.Job, error) {
	if _, err := o.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	job := &models.Job{TenantID: tenantID, Hour: hour, Minute: minute, Prompt: prompt}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	if err := o.schedules.RegisterOrReplace(ctx, job); err != nil {
		// Keep the store consistent with the timer table.
		if delErr := o.store.DeleteJob(ctx, job.ID); delErr != nil {
			o.logger.Error("orphaned job after failed registration", "job_id", job.ID, "error", delErr)
		}
		return nil, err
	}
	return job, nil
}

// EditPrompt updates a stored prompt and swaps its timer. The job keeps
// its id; the old timer is replaced atomically.
func (o *Orchestrator) EditPrompt(ctx context.Context, job *models.Job) error {
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	return o.schedules.RegisterOrReplace(ctx, job)
}

// DeletePrompt cancels the job's timer synchronously and removes the
// stored job. Deleting an unknown job is a no-op.
func (o *Orchestrator) DeletePrompt(ctx context.Context, jobID int64) error {
	o.schedules.Cancel(jobID)
	return o.store.DeleteJob(ctx, jobID)
}

// ListPrompts returns the tenant's stored recurring prompts.
func (o *Orchestrator) ListPrompts(ctx context.Context, tenantID string) ([]*models.Job, error) {
	return o.store.ListJobsByTenant(ctx, tenantID)
}

// Rebuild installs timers for every persisted job. Called once at
// startup, before Start. A job that fails to register (for example a
// tenant whose timezone is no longer loadable) is logged and skipped so
// one bad row cannot block the rest.
func (o *Orchestrator) Rebuild(ctx context.Context) error {
	jobs, err := o.store.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	for _, job := range jobs {
		if err := o.schedules.RegisterOrReplace(ctx, job); err != nil {
			o.logger.Error("job rebuild failed", "job_id", job.ID, "tenant_id", job.TenantID, "error", err)
		}
	}
	o.logger.Info("schedules rebuilt", "jobs", len(jobs), "timers", o.schedules.Len())
	return nil
}
