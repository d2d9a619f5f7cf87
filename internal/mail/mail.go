// Package mail defines the contracts the correlation engine consumes
// from a mail backend: dispatching a composed message, enumerating
// mailbox folders and their items, and reading or saving attachments.
// The engine itself never talks to a wire protocol; see the imapmail
// subpackage for the production adapter.
package mail

import (
	"context"
	"time"
)

// Outbound is a fully composed message handed to a Dispatcher.
type Outbound struct {
	To       string
	CC       string
	Subject  string
	HTMLBody string

	// Headers carries custom named properties (token, collection id,
	// product description) stamped onto the message.
	Headers map[string]string

	// AttachmentPaths lists local files to attach. Callers filter these
	// best-effort; dispatchers may skip unreadable entries.
	AttachmentPaths []string
}

// SentIdent identifies a dispatched message as the backend recorded it.
type SentIdent struct {
	MessageID string
	ThreadID  string
	SentAt    time.Time
}

// Dispatcher submits messages for delivery and can locate a recently
// submitted message by subject substring.
type Dispatcher interface {
	// Send composes and submits msg for delivery.
	Send(ctx context.Context, msg Outbound) error

	// FindSent searches at most lookback of the most recent sent items
	// for a subject containing substr. It returns nil when no match is
	// found; callers degrade to empty identifiers.
	FindSent(ctx context.Context, substr string, lookback int) (*SentIdent, error)
}

// Attachment exposes one attachment of a message.
type Attachment interface {
	Filename() string
	Size() int64

	// SaveTo writes the attachment content to the given local path.
	SaveTo(path string) error
}

// Message exposes the properties of one mailbox item the scanner reads.
type Message interface {
	// ID is a stable identifier for the message within its backend.
	ID() string

	Subject() string
	TextBody() string
	HTMLBody() string

	// SenderAddress resolves the sender through the backend's directory
	// where available, falling back to the raw address.
	SenderAddress() string

	ReceivedAt() time.Time
	Attachments() []Attachment
}

// Folder is one mailbox folder. Messages are enumerated newest-first
// and bounded by max to protect against unbounded cost on large
// mailboxes.
type Folder interface {
	Name() string
	Subfolders(ctx context.Context) ([]Folder, error)
	Messages(ctx context.Context, max int) ([]Message, error)
}

// Mailbox enumerates the default inbox of every available message store.
type Mailbox interface {
	Inboxes(ctx context.Context) ([]Folder, error)
}

// Session bundles the backend surfaces used by one logical operation.
// A session is acquired per operation and must be released on every
// exit path; it is not safe for concurrent use.
type Session interface {
	Mailbox
	Dispatcher

	Close() error
}
