// Package models defines the shared domain types used across the
// orchestration engine: tenants, scheduled jobs, tool calls, and the
// unified inbound message format.
package models

import (
	"encoding/json"
	"time"
)

// Tenant is a chat-transport identity with its own agent configuration.
type Tenant struct {
	// ID is the opaque transport-level identity (e.g. a Telegram chat id).
	ID string `json:"id"`

	// Instructions is the system-instructions text used when creating
	// the tenant's agent.
	Instructions string `json:"instructions"`

	// Timezone is an IANA timezone name (e.g. "Europe/Berlin") used to
	// anchor scheduled prompts to tenant-local wall-clock time.
	Timezone string `json:"timezone"`
}

// Job is a stored recurring prompt replayed daily at a tenant-local time.
type Job struct {
	// ID is assigned by the store on creation.
	ID int64 `json:"id"`

	TenantID string `json:"tenant_id"`

	// Hour and Minute are the tenant-local fire time.
	Hour   int `json:"hour"`
	Minute int `json:"minute"`

	Prompt string `json:"prompt"`
}

// ToolCall is a single function invocation requested by a run.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolOutput is the paired result for one tool call, matched by call id.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Inbound is the unified inbound chat message format across transports.
type Inbound struct {
	TenantID   string    `json:"tenant_id"`
	Text       string    `json:"text"`
	Transport  string    `json:"transport"`
	ReceivedAt time.Time `json:"received_at"`
}
