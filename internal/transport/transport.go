// Package transport defines the chat transport abstraction. A transport
// receives inbound tenant messages and delivers outbound answers; the
// orchestration core never talks to a chat platform directly.
package transport

import (
	"context"

	"github.com/haasonsaas/concierge/pkg/models"
)

// Transport connects the orchestrator to one chat platform.
type Transport interface {
	// Name identifies the transport in logs and inbound messages.
	Name() string

	// Start connects to the platform and begins producing inbound
	// messages. It returns once the receive loop is running.
	Start(ctx context.Context) error

	// Stop disconnects and closes the inbound channel. It waits for
	// the receive loop to settle or the context to expire.
	Stop(ctx context.Context) error

	// Deliver sends text to the tenant's chat. Failures carry
	// TRANSPORT_ERROR.
	Deliver(ctx context.Context, tenantID, text string) error

	// SendPresence signals the tenant that an answer is being
	// prepared. Presence is best effort; it never blocks an answer.
	SendPresence(ctx context.Context, tenantID string) error

	// Messages returns the inbound message stream. The channel closes
	// when the transport stops.
	Messages() <-chan *models.Inbound
}
