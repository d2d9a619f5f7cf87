package model

import "time"

// SendRecord is the audit row written for every outbound message.
// Rows are keyed by token: a resend with the same token replaces the
// previous row, tokens are otherwise never reused.
type SendRecord struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	Company      string    `db:"company"`
	Token        string    `db:"token"`
	Subject      string    `db:"subject"`
	MessageID    string    `db:"message_id"`
	ThreadID     string    `db:"thread_id"`
	SentOn       time.Time `db:"sent_on"`
	Status       string    `db:"status"`
	CollectionID string    `db:"collection_id"`
	ProductDesc  string    `db:"product_desc"`
}

// StatusSent is the only status the sender records today.
const StatusSent = "SENT"

// ReplyRecord is the audit row written for every inbound message that
// carried a recognizable token. The (token, from_email, received_on)
// triple is the natural key; duplicate scans must not create new rows.
type ReplyRecord struct {
	ID             int64     `db:"id"`
	Token          string    `db:"token"`
	Company        string    `db:"company"`
	FromEmail      string    `db:"from_email"`
	ReceivedOn     time.Time `db:"received_on"`
	HasAttachments bool      `db:"has_attachments"`
	ParseOK        bool      `db:"parse_ok"`
	ParseJSON      string    `db:"parse_json"`
	CollectionID   string    `db:"collection_id"`
	ProductDesc    string    `db:"product_desc"`
}

// ParsePayload is the structured content stored in ReplyRecord.ParseJSON.
type ParsePayload struct {
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
}

// AttachmentRecord is written once per attachment encountered, whether or
// not the file was actually saved. An empty SavedPath and SHA256 mark an
// attachment that was skipped (size ceiling) or failed to save.
type AttachmentRecord struct {
	ID            int64     `db:"id"`
	Token         string    `db:"token"`
	MsgID         string    `db:"msg_id"`
	ReceivedOn    time.Time `db:"received_on"`
	FileName      string    `db:"file_name"`
	FileExt       string    `db:"file_ext"`
	FileSizeBytes int64     `db:"file_size_bytes"`
	SavedPath     string    `db:"saved_path"`
	SHA256        string    `db:"sha256"`
	CreatedAt     time.Time `db:"created_at"`
}

// SendMeta is the subset of a SendRecord the scanner joins back onto
// replies. All fields are empty when no send record exists for a token;
// the scan proceeds regardless.
type SendMeta struct {
	Company      string `db:"company"`
	CollectionID string `db:"collection_id"`
	ProductDesc  string `db:"product_desc"`
}

// Recipient is one row of the contacts workbook handed to the sender.
type Recipient struct {
	Email        string
	Company      string
	CollectionID string
	ProductDesc  string
}
