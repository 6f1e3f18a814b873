package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haasonsaas/concierge/internal/assistant"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/internal/tools"
	"github.com/haasonsaas/concierge/pkg/models"
)

// ProcessorConfig configures run processing behavior.
type ProcessorConfig struct {
	// MaxRounds bounds the number of requires-action rounds within one
	// run. Exceeding it resolves the run as a failure instead of
	// recursing indefinitely on a misbehaving agent. Default: 8.
	MaxRounds int

	// ToolConcurrency is the maximum number of concurrent tool
	// dispatches within one batch. Default: 4.
	ToolConcurrency int

	// PerToolTimeout is the timeout for individual tool dispatches.
	// Default: 30 seconds.
	PerToolTimeout time.Duration
}

// DefaultProcessorConfig returns the default run processing settings.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		MaxRounds:       8,
		ToolConcurrency: 4,
		PerToolTimeout:  30 * time.Second,
	}
}

// Processor consumes the event stream of one run and drives it to
// completion, dispatching tool-call batches through the function
// registry between rounds.
//
// States: Created -> Streaming -> {RequiresAction <-> Streaming} ->
// {Completed | Failed | Cancelled}. Rounds within one run are strictly
// sequential; tool calls within one batch fan out concurrently.
type Processor struct {
	client   assistant.Client
	registry *tools.Registry
	logger   *slog.Logger
	config   ProcessorConfig
}

// NewProcessor creates a run event processor. Zero config fields take
// defaults.
func NewProcessor(client assistant.Client, registry *tools.Registry, logger *slog.Logger, config ProcessorConfig) *Processor {
	if config.MaxRounds <= 0 {
		config.MaxRounds = 8
	}
	if config.ToolConcurrency <= 0 {
		config.ToolConcurrency = 4
	}
	if config.PerToolTimeout <= 0 {
		config.PerToolTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		client:   client,
		registry: registry,
		logger:   logger.With("component", "processor"),
		config:   config,
	}
}

// Resolve starts a run of agent against thread (the user message must
// already be appended) and drives it to a textual answer.
//
// On upstream run failure or an exceeded round ceiling, the returned
// text is a user-facing failure message and the error carries
// UPSTREAM_RUN_FAILURE, so callers can both deliver a string and
// distinguish failure from success. A completed run with no assistant
// message resolves to "" without error.
func (p *Processor) Resolve(ctx context.Context, threadID, agentID string) (string, error) {
	runID, events, err := p.client.StartRun(ctx, threadID, agentID)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	ctx = observability.AddRunID(ctx, runID)
	logger := observability.WithContext(ctx, p.logger)

	for round := 0; ; round++ {
		event, err := nextEvent(ctx, events)
		if err != nil {
			return "", err
		}

		switch event.Kind {
		case assistant.RunCompleted:
			text, err := p.client.LatestAssistantMessage(ctx, threadID)
			if err != nil {
				return "", fmt.Errorf("read answer: %w", err)
			}
			// No assistant message is a defined edge case, not an error.
			return text, nil

		case assistant.RunFailed, assistant.RunCancelled:
			logger.Warn("run resolved as failure", "kind", event.Kind, "reason", event.Reason)
			return failureMessage(event.Reason),
				models.ErrUpstreamRun(fmt.Sprintf("run %s: %s", event.Kind, event.Reason), nil)

		case assistant.RunRequiresAction:
			if round >= p.config.MaxRounds {
				logger.Warn("tool round ceiling exceeded", "rounds", round)
				return failureMessage("the agent requested too many tool rounds"),
					models.ErrUpstreamRun(fmt.Sprintf("tool round ceiling (%d) exceeded", p.config.MaxRounds), nil)
			}
			outputs := p.dispatchBatch(ctx, event.ToolCalls)
			events, err = p.client.SubmitToolOutputs(ctx, threadID, runID, outputs)
			if err != nil {
				return "", fmt.Errorf("submit tool outputs: %w", err)
			}

		case assistant.StreamError:
			return "", fmt.Errorf("run event stream: %w", event.Err)

		default:
			return "", fmt.Errorf("unexpected run event %q", event.Kind)
		}
	}
}

// nextEvent reads one event from the stream, failing if the stream
// closes without delivering an actionable event.
func nextEvent(ctx context.Context, events <-chan assistant.RunEvent) (assistant.RunEvent, error) {
	select {
	case <-ctx.Done():
		return assistant.RunEvent{}, ctx.Err()
	case event, ok := <-events:
		if !ok {
			return assistant.RunEvent{}, fmt.Errorf("run event stream closed unexpectedly")
		}
		return event, nil
	}
}

// dispatchBatch fans out the batch's tool calls through the registry and
// collects exactly one output per call id, success or failure. A handler
// error, timeout, validation failure, or panic becomes a structured
// error output for that call and never aborts sibling dispatches.
func (p *Processor) dispatchBatch(ctx context.Context, calls []models.ToolCall) []models.ToolOutput {
	outputs := make([]models.ToolOutput, len(calls))

	sem := make(chan struct{}, p.config.ToolConcurrency)
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc models.ToolCall) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outputs[idx] = errorOutput(tc.ID, "dispatch cancelled")
				return
			}

			outputs[idx] = p.dispatchOne(ctx, tc)
		}(i, call)
	}
	wg.Wait()
	return outputs
}

func (p *Processor) dispatchOne(ctx context.Context, call models.ToolCall) (out models.ToolOutput) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("tool handler panicked", "tool", call.Name, "tool_call_id", call.ID, "panic", fmt.Sprint(r))
			out = errorOutput(call.ID, fmt.Sprintf("tool %s panicked", call.Name))
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, p.config.PerToolTimeout)
	defer cancel()

	result, err := p.registry.Dispatch(callCtx, call.Name, call.Arguments)
	if err != nil {
		p.logger.Warn("tool dispatch failed", "tool", call.Name, "tool_call_id", call.ID, "error", err)
		return errorOutput(call.ID, err.Error())
	}
	if result.IsError {
		return errorOutput(call.ID, result.Content)
	}
	return models.ToolOutput{ToolCallID: call.ID, Output: result.Content}
}

// errorOutput builds the structured error payload forwarded to the model
// in place of a successful tool result.
func errorOutput(callID, message string) models.ToolOutput {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		payload = []byte(`{"error":"tool failed"}`)
	}
	return models.ToolOutput{ToolCallID: callID, Output: string(payload), IsError: true}
}

func failureMessage(reason string) string {
	if reason == "" {
		return "Sorry, I couldn't finish processing that request."
	}
	return fmt.Sprintf("Sorry, I couldn't finish processing that request (%s).", reason)
}
