package interfaces

import (
	"context"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// Mailer defines the interface for outbound email delivery
type Mailer interface {
	Send(ctx context.Context, msg *types.EmailMessage) error
}

// GrantNotifier composes and dispatches the grant lifecycle emails.
// All methods are best-effort: failures are logged and swallowed, never
// surfaced to the authorization operation that triggered them.
type GrantNotifier interface {
	// AccessRequested notifies the patient with distinct approve and
	// reject deep links
	AccessRequested(grant *types.PatientAccessGrant, patient *types.User)
	// AccessDecided notifies the requesting doctor of the patient's decision
	AccessDecided(grant *types.PatientAccessGrant, doctor *types.User)
}

// NotificationDispatcher hands messages to an asynchronous worker so
// delivery never blocks the caller's response
type NotificationDispatcher interface {
	// Enqueue accepts a message for best-effort delivery. It reports false
	// when the queue is full or closed; the caller logs and moves on.
	Enqueue(msg *types.EmailMessage) bool
	// Close stops accepting messages and drains the queue
	Close()
}
