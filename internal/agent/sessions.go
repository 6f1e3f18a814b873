// Package agent contains the orchestration core: per-tenant session
// management, the run event processor that drives one conversational run
// to completion, and per-tenant run serialization.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haasonsaas/concierge/internal/assistant"
	"github.com/haasonsaas/concierge/internal/store"
	"github.com/haasonsaas/concierge/internal/tools"
)

// Sessions lazily creates and caches one agent identity and one
// interactive thread per tenant. Both caches live for the process
// lifetime; the interactive thread is never recreated so conversation
// continuity is preserved per tenant.
type Sessions struct {
	client   assistant.Client
	store    store.Store
	registry *tools.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	agents  map[string]*cacheEntry
	threads map[string]*cacheEntry
}

// cacheEntry resolves an id at most once; concurrent callers for the
// same tenant block on the same entry instead of racing to create
// duplicate agents or threads.
type cacheEntry struct {
	once sync.Once
	id   string
	err  error
}

// NewSessions creates the session manager.
func NewSessions(client assistant.Client, st store.Store, registry *tools.Registry, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		client:   client,
		store:    st,
		registry: registry,
		logger:   logger.With("component", "sessions"),
		agents:   make(map[string]*cacheEntry),
		threads:  make(map[string]*cacheEntry),
	}
}

// Client returns the underlying assistant client.
func (s *Sessions) Client() assistant.Client {
	return s.client
}

// Agent returns the tenant's cached agent id, creating it on first use
// from the tenant's stored system instructions and the full registered
// tool set. Returns a NOT_FOUND error if the tenant does not exist.
func (s *Sessions) Agent(ctx context.Context, tenantID string) (string, error) {
	return s.resolve(ctx, s.agents, tenantID, func() (string, error) {
		tenant, err := s.store.GetTenant(ctx, tenantID)
		if err != nil {
			return "", err
		}

		descs := s.registry.Descriptors()
		toolSet := make([]assistant.ToolDescriptor, 0, len(descs))
		for _, d := range descs {
			toolSet = append(toolSet, assistant.ToolDescriptor{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			})
		}

		agentID, err := s.client.CreateAgent(ctx, "concierge-"+tenantID, tenant.Instructions, toolSet)
		if err != nil {
			return "", fmt.Errorf("create agent for tenant %s: %w", tenantID, err)
		}
		s.logger.Info("agent created", "tenant_id", tenantID, "agent_id", agentID)
		return agentID, nil
	})
}

// InteractiveThread returns the tenant's cached interactive thread id,
// creating it on first use.
func (s *Sessions) InteractiveThread(ctx context.Context, tenantID string) (string, error) {
	return s.resolve(ctx, s.threads, tenantID, func() (string, error) {
		threadID, err := s.client.CreateThread(ctx, map[string]string{
			"tenant_id": tenantID,
			"kind":      "interactive",
		})
		if err != nil {
			return "", fmt.Errorf("create interactive thread for tenant %s: %w", tenantID, err)
		}
		s.logger.Info("interactive thread created", "tenant_id", tenantID, "thread_id", threadID)
		return threadID, nil
	})
}

// EphemeralThread always creates a fresh thread for a scheduled run.
// Ephemeral threads are never cached or reused.
func (s *Sessions) EphemeralThread(ctx context.Context, tenantID string) (string, error) {
	threadID, err := s.client.CreateThread(ctx, map[string]string{
		"tenant_id": tenantID,
		"kind":      "scheduled",
	})
	if err != nil {
		return "", fmt.Errorf("create ephemeral thread for tenant %s: %w", tenantID, err)
	}
	return threadID, nil
}

// UpdateInstructions propagates new system instructions to the tenant's
// cached agent in place, preserving its accumulated tool configuration.
// A tenant with no cached agent needs nothing: the next Agent call reads
// the new instructions from the store.
func (s *Sessions) UpdateInstructions(ctx context.Context, tenantID, instructions string) error {
	s.mu.Lock()
	entry := s.agents[tenantID]
	s.mu.Unlock()
	if entry == nil {
		return nil
	}

	// Wait for any in-flight creation to settle.
	entry.once.Do(func() {})
	if entry.err != nil || entry.id == "" {
		return nil
	}
	if err := s.client.UpdateAgentInstructions(ctx, entry.id, instructions); err != nil {
		return fmt.Errorf("update instructions for tenant %s: %w", tenantID, err)
	}
	s.logger.Info("agent instructions updated", "tenant_id", tenantID, "agent_id", entry.id)
	return nil
}

func (s *Sessions) resolve(ctx context.Context, cache map[string]*cacheEntry, tenantID string, create func() (string, error)) (string, error) {
	s.mu.Lock()
	entry := cache[tenantID]
	if entry == nil {
		entry = &cacheEntry{}
		cache[tenantID] = entry
	}
	s.mu.Unlock()

	entry.once.Do(func() {
		entry.id, entry.err = create()
	})
	if entry.err != nil {
		// Failed creations are not cached; the next call retries.
		s.mu.Lock()
		if cache[tenantID] == entry {
			delete(cache, tenantID)
		}
		s.mu.Unlock()
		return "", entry.err
	}
	return entry.id, nil
}
