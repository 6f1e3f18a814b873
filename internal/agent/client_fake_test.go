package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/haasonsaas/concierge/internal/assistant"
	"github.com/haasonsaas/concierge/pkg/models"
)

// fakeClient is a scriptable assistant.Client. StartRun and each
// SubmitToolOutputs call consume the next scripted event stream in order.
type fakeClient struct {
	mu sync.Mutex

	// scripted behavior
	streams      [][]assistant.RunEvent
	latest       string
	latestErr    error
	createErr    error
	threadErr    error
	submitErr    error
	startRunErr  error
	instructions map[string]string // agentID -> instructions

	// recorded activity
	agentsCreated  int
	threadsCreated int
	threadMeta     []map[string]string
	appended       map[string][]string // threadID -> messages
	submitted      [][]models.ToolOutput
	streamIdx      int
}

func newFakeClient(streams ...[]assistant.RunEvent) *fakeClient {
	return &fakeClient{
		streams:      streams,
		instructions: make(map[string]string),
		appended:     make(map[string][]string),
	}
}

func (f *fakeClient) CreateAgent(ctx context.Context, name, instructions string, toolSet []assistant.ToolDescriptor) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.agentsCreated++
	id := fmt.Sprintf("agent-%d", f.agentsCreated)
	f.instructions[id] = instructions
	return id, nil
}

func (f *fakeClient) UpdateAgentInstructions(ctx context.Context, agentID, instructions string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.instructions[agentID]; !ok {
		return fmt.Errorf("unknown agent %s", agentID)
	}
	f.instructions[agentID] = instructions
	return nil
}

func (f *fakeClient) CreateThread(ctx context.Context, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return "", f.threadErr
	}
	f.threadsCreated++
	f.threadMeta = append(f.threadMeta, metadata)
	return fmt.Sprintf("thread-%d", f.threadsCreated), nil
}

func (f *fakeClient) AppendUserMessage(ctx context.Context, threadID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended[threadID] = append(f.appended[threadID], content)
	return nil
}

func (f *fakeClient) StartRun(ctx context.Context, threadID, agentID string) (string, <-chan assistant.RunEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startRunErr != nil {
		return "", nil, f.startRunErr
	}
	return "run-1", f.nextStreamLocked(), nil
}

func (f *fakeClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []models.ToolOutput) (<-chan assistant.RunEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	captured := make([]models.ToolOutput, len(outputs))
	copy(captured, outputs)
	f.submitted = append(f.submitted, captured)
	return f.nextStreamLocked(), nil
}

func (f *fakeClient) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.latestErr
}

func (f *fakeClient) nextStreamLocked() <-chan assistant.RunEvent {
	var events []assistant.RunEvent
	if f.streamIdx < len(f.streams) {
		events = f.streams[f.streamIdx]
		f.streamIdx++
	}
	ch := make(chan assistant.RunEvent, len(events))
	for _, event := range events {
		ch <- event
	}
	close(ch)
	return ch
}
