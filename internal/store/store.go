package store

import (
	"context"

	"github.com/khanhvu/outreach/internal/model"
)

// Store defines the persistence interface for the send, reply, and
// attachment logs. All three logs are durable and never pruned here.
type Store interface {
	// UpsertSend inserts a send record, replacing any existing row with
	// the same token.
	UpsertSend(ctx context.Context, rec model.SendRecord) error

	// InsertReply inserts a reply record unless a row with the same
	// (token, from_email, received_on) key already exists, in which case
	// it is a no-op.
	InsertReply(ctx context.Context, rec model.ReplyRecord) error

	// InsertAttachment appends an attachment record. Attachment rows are
	// never deduplicated.
	InsertAttachment(ctx context.Context, rec model.AttachmentRecord) error

	// MetaByToken returns the company/collection/description recorded at
	// send time for a token. A token with no send record yields empty
	// metadata and no error.
	MetaByToken(ctx context.Context, token string) (model.SendMeta, error)

	// RecentSends, RecentReplies, and RecentAttachments return the most
	// recent records for display, newest first.
	RecentSends(ctx context.Context, limit int) ([]model.SendRecord, error)
	RecentReplies(ctx context.Context, limit int) ([]model.ReplyRecord, error)
	RecentAttachments(ctx context.Context, limit int) ([]model.AttachmentRecord, error)

	Close() error
}
