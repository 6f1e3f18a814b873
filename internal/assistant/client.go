// Package assistant abstracts the model/agent API: agent and thread
// lifecycle, run event streams, and tool output submission.
package assistant

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/concierge/pkg/models"
)

// EventKind classifies a run lifecycle event.
type EventKind string

const (
	// RunCompleted indicates the run finished; the latest assistant
	// message holds the answer.
	RunCompleted EventKind = "completed"

	// RunFailed indicates the run failed upstream.
	RunFailed EventKind = "failed"

	// RunCancelled indicates the run was cancelled upstream.
	RunCancelled EventKind = "cancelled"

	// RunRequiresAction indicates the run wants tool calls executed
	// before it can continue.
	RunRequiresAction EventKind = "requires_action"

	// StreamError indicates the event stream itself broke.
	StreamError EventKind = "stream_error"
)

// RunEvent is one lifecycle event from a run's event stream.
type RunEvent struct {
	Kind EventKind

	// ToolCalls holds the batch for a requires-action event.
	ToolCalls []models.ToolCall

	// Reason holds the upstream failure reason for failed/cancelled events.
	Reason string

	// Err holds the stream-level error for StreamError events.
	Err error
}

// ToolDescriptor describes one registered tool for agent creation.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Client is the model/agent API consumed by the orchestration engine.
// Implementations are external collaborators; all blocking operations
// take a context.
type Client interface {
	// CreateAgent creates an agent with the given instructions and tool
	// set, returning its id.
	CreateAgent(ctx context.Context, name, instructions string, toolSet []ToolDescriptor) (string, error)

	// UpdateAgentInstructions updates an existing agent's instructions
	// in place, preserving its tool configuration.
	UpdateAgentInstructions(ctx context.Context, agentID, instructions string) error

	// CreateThread creates a conversation thread tagged with metadata,
	// returning its id.
	CreateThread(ctx context.Context, metadata map[string]string) (string, error)

	// AppendUserMessage appends a user message to a thread.
	AppendUserMessage(ctx context.Context, threadID, content string) error

	// StartRun starts a run of agent against thread and returns the run
	// id plus its event stream. The stream is closed after the run's
	// next actionable event (terminal or requires-action) is delivered.
	StartRun(ctx context.Context, threadID, agentID string) (string, <-chan RunEvent, error)

	// SubmitToolOutputs submits a complete tool output batch for a run
	// waiting on action and returns the resumed event stream.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []models.ToolOutput) (<-chan RunEvent, error)

	// LatestAssistantMessage returns the text of the most recent
	// assistant-authored message on the thread, or "" if there is none.
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}
