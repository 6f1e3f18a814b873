package assistant

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestMapRunStatus(t *testing.T) {
	tests := []struct {
		name       string
		run        openai.Run
		wantKind   EventKind
		actionable bool
	}{
		{
			name:       "completed",
			run:        openai.Run{Status: openai.RunStatusCompleted},
			wantKind:   RunCompleted,
			actionable: true,
		},
		{
			name: "failed with reason",
			run: openai.Run{
				Status:    openai.RunStatusFailed,
				LastError: &openai.RunLastError{Code: "server_error", Message: "model overloaded"},
			},
			wantKind:   RunFailed,
			actionable: true,
		},
		{
			name:       "cancelled",
			run:        openai.Run{Status: openai.RunStatusCancelled},
			wantKind:   RunCancelled,
			actionable: true,
		},
		{
			name:       "expired maps to failed",
			run:        openai.Run{Status: openai.RunStatusExpired},
			wantKind:   RunFailed,
			actionable: true,
		},
		{
			name:       "queued keeps polling",
			run:        openai.Run{Status: openai.RunStatusQueued},
			actionable: false,
		},
		{
			name:       "in progress keeps polling",
			run:        openai.Run{Status: openai.RunStatusInProgress},
			actionable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, actionable := mapRunStatus(&tt.run)
			if actionable != tt.actionable {
				t.Fatalf("mapRunStatus() actionable = %v, want %v", actionable, tt.actionable)
			}
			if actionable && event.Kind != tt.wantKind {
				t.Errorf("mapRunStatus() kind = %q, want %q", event.Kind, tt.wantKind)
			}
		})
	}
}

func TestMapRunStatus_FailureReason(t *testing.T) {
	run := openai.Run{
		Status:    openai.RunStatusFailed,
		LastError: &openai.RunLastError{Message: "rate limit exceeded"},
	}
	event, _ := mapRunStatus(&run)
	if event.Reason != "rate limit exceeded" {
		t.Errorf("reason = %q, want upstream message", event.Reason)
	}

	run.LastError = nil
	event, _ = mapRunStatus(&run)
	if event.Reason != string(openai.RunStatusFailed) {
		t.Errorf("reason = %q, want status fallback", event.Reason)
	}
}

func TestExtractToolCalls(t *testing.T) {
	run := openai.Run{
		Status: openai.RunStatusRequiresAction,
		RequiredAction: &openai.RunRequiredAction{
			Type: openai.RequiredActionTypeSubmitToolOutputs,
			SubmitToolOutputs: &openai.SubmitToolOutputs{
				ToolCalls: []openai.ToolCall{
					{
						ID:       "call_1",
						Type:     openai.ToolTypeFunction,
						Function: openai.FunctionCall{Name: "web_search", Arguments: `{"query":"go"}`},
					},
					{
						ID:       "call_2",
						Type:     openai.ToolTypeFunction,
						Function: openai.FunctionCall{Name: "weather", Arguments: `{"location":"Berlin"}`},
					},
				},
			},
		},
	}

	event, actionable := mapRunStatus(&run)
	if !actionable || event.Kind != RunRequiresAction {
		t.Fatalf("mapRunStatus() = %+v, %v", event, actionable)
	}
	if len(event.ToolCalls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(event.ToolCalls))
	}
	if event.ToolCalls[0].ID != "call_1" || event.ToolCalls[0].Name != "web_search" {
		t.Errorf("first call = %+v", event.ToolCalls[0])
	}
	if string(event.ToolCalls[1].Arguments) != `{"location":"Berlin"}` {
		t.Errorf("second call arguments = %s", event.ToolCalls[1].Arguments)
	}
}

func TestExtractToolCalls_NoAction(t *testing.T) {
	run := openai.Run{Status: openai.RunStatusRequiresAction}
	event, _ := mapRunStatus(&run)
	if len(event.ToolCalls) != 0 {
		t.Errorf("tool calls = %d, want 0", len(event.ToolCalls))
	}
}
