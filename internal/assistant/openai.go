package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/concierge/pkg/models"
)

// OpenAIConfig configures the OpenAI-backed assistant client.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API.
	APIKey string

	// Model is the model id used for agent creation.
	Model string

	// PollInterval is the delay between run status polls.
	PollInterval time.Duration

	// Logger is an optional slog.Logger instance.
	Logger *slog.Logger
}

// OpenAIClient implements Client over the OpenAI Assistants API. Run
// event streams are realized by polling run status; each StartRun or
// SubmitToolOutputs call yields a stream that delivers the run's next
// actionable event and then closes.
type OpenAIClient struct {
	api          *openai.Client
	model        string
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewOpenAIClient creates an assistant client backed by OpenAI.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OpenAIClient{
		api:          openai.NewClient(cfg.APIKey),
		model:        cfg.Model,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger.With("component", "assistant"),
	}
}

// CreateAgent creates an assistant configured with the full tool set.
func (c *OpenAIClient) CreateAgent(ctx context.Context, name, instructions string, toolSet []ToolDescriptor) (string, error) {
	assistantTools := make([]openai.AssistantTool, 0, len(toolSet))
	for _, desc := range toolSet {
		assistantTools = append(assistantTools, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        desc.Name,
				Description: desc.Description,
				Parameters:  desc.Parameters,
			},
		})
	}

	created, err := c.api.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        c.model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        assistantTools,
	})
	if err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	return created.ID, nil
}

// UpdateAgentInstructions modifies the assistant's instructions in place,
// leaving its tool configuration untouched.
func (c *OpenAIClient) UpdateAgentInstructions(ctx context.Context, agentID, instructions string) error {
	_, err := c.api.ModifyAssistant(ctx, agentID, openai.AssistantRequest{
		Model:        c.model,
		Instructions: &instructions,
	})
	if err != nil {
		return fmt.Errorf("modify assistant %s: %w", agentID, err)
	}
	return nil
}

// CreateThread creates a thread tagged with the given metadata.
func (c *OpenAIClient) CreateThread(ctx context.Context, metadata map[string]string) (string, error) {
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{Metadata: meta})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

// AppendUserMessage appends a user message to the thread.
func (c *OpenAIClient) AppendUserMessage(ctx context.Context, threadID, content string) error {
	_, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("append message to %s: %w", threadID, err)
	}
	return nil
}

// StartRun creates a run and begins polling its status.
func (c *OpenAIClient) StartRun(ctx context.Context, threadID, agentID string) (string, <-chan RunEvent, error) {
	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: agentID})
	if err != nil {
		return "", nil, fmt.Errorf("create run: %w", err)
	}
	events := make(chan RunEvent, 1)
	go c.poll(ctx, threadID, run.ID, events)
	return run.ID, events, nil
}

// SubmitToolOutputs submits the full output batch and resumes polling.
func (c *OpenAIClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []models.ToolOutput) (<-chan RunEvent, error) {
	request := openai.SubmitToolOutputsRequest{
		ToolOutputs: make([]openai.ToolOutput, 0, len(outputs)),
	}
	for _, out := range outputs {
		request.ToolOutputs = append(request.ToolOutputs, openai.ToolOutput{
			ToolCallID: out.ToolCallID,
			Output:     out.Output,
		})
	}

	if _, err := c.api.SubmitToolOutputs(ctx, threadID, runID, request); err != nil {
		return nil, fmt.Errorf("submit tool outputs for run %s: %w", runID, err)
	}
	events := make(chan RunEvent, 1)
	go c.poll(ctx, threadID, runID, events)
	return events, nil
}

// LatestAssistantMessage returns the most recent assistant-authored text
// on the thread, or "" when the thread has no assistant message.
func (c *OpenAIClient) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	limit := 20
	order := "desc"
	list, err := c.api.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages for %s: %w", threadID, err)
	}
	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Text != nil && part.Text.Value != "" {
				return part.Text.Value, nil
			}
		}
	}
	return "", nil
}

// poll retrieves run status until an actionable event is produced, then
// emits it and closes the stream.
func (c *OpenAIClient) poll(ctx context.Context, threadID, runID string, events chan<- RunEvent) {
	defer close(events)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		run, err := c.api.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			events <- RunEvent{Kind: StreamError, Err: fmt.Errorf("retrieve run %s: %w", runID, err)}
			return
		}

		event, actionable := mapRunStatus(&run)
		if actionable {
			events <- event
			return
		}

		select {
		case <-ctx.Done():
			events <- RunEvent{Kind: StreamError, Err: ctx.Err()}
			return
		case <-ticker.C:
		}
	}
}

// mapRunStatus translates an API run into a lifecycle event. The second
// return reports whether the run reached an actionable state.
func mapRunStatus(run *openai.Run) (RunEvent, bool) {
	switch run.Status {
	case openai.RunStatusCompleted:
		return RunEvent{Kind: RunCompleted}, true
	case openai.RunStatusFailed:
		return RunEvent{Kind: RunFailed, Reason: runFailureReason(run)}, true
	case openai.RunStatusCancelled:
		return RunEvent{Kind: RunCancelled, Reason: runFailureReason(run)}, true
	case openai.RunStatusExpired:
		return RunEvent{Kind: RunFailed, Reason: "run expired"}, true
	case openai.RunStatusIncomplete:
		return RunEvent{Kind: RunFailed, Reason: "run incomplete"}, true
	case openai.RunStatusRequiresAction:
		return RunEvent{Kind: RunRequiresAction, ToolCalls: extractToolCalls(run)}, true
	default:
		// queued, in_progress, cancelling: keep polling.
		return RunEvent{}, false
	}
}

func runFailureReason(run *openai.Run) string {
	if run.LastError != nil && run.LastError.Message != "" {
		return run.LastError.Message
	}
	return string(run.Status)
}

func extractToolCalls(run *openai.Run) []models.ToolCall {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	raw := run.RequiredAction.SubmitToolOutputs.ToolCalls
	calls := make([]models.ToolCall, 0, len(raw))
	for _, tc := range raw {
		calls = append(calls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return calls
}
