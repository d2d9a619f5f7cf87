// Package imapmail is the production mail backend: folder enumeration
// and message reading over IMAP, dispatch over SMTP. One Session serves
// one logical operation and must be closed when the operation ends.
package imapmail

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/khanhvu/outreach/internal/mail"
)

// Config holds the endpoints and credentials for one mailbox account.
type Config struct {
	IMAPHost string
	IMAPPort string
	SMTPHost string
	SMTPPort string
	Username string
	Password string
	TLS      bool

	// SentFolder is the mailbox that holds dispatched messages; sent
	// copies are appended there so they can be located afterwards.
	SentFolder string
}

// Session implements mail.Session over a single IMAP connection plus
// per-send SMTP connections. Not safe for concurrent use.
type Session struct {
	cfg    Config
	client *imapclient.Client
}

var _ mail.Session = (*Session)(nil)

// Dial connects to the IMAP server and authenticates. The caller owns
// the returned session and must Close it on every exit path.
func Dial(cfg Config) (*Session, error) {
	addr := cfg.IMAPHost + ":" + cfg.IMAPPort

	var client *imapclient.Client
	var err error

	if cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", cfg.Username, err)
	}

	return &Session{cfg: cfg, client: client}, nil
}

// Close logs out and releases the IMAP connection.
func (s *Session) Close() error {
	return s.client.Logout().Wait()
}

// Inboxes returns the default inbox of the account. IMAP exposes a
// single store per connection.
func (s *Session) Inboxes(_ context.Context) ([]mail.Folder, error) {
	return []mail.Folder{&folder{s: s, name: "INBOX"}}, nil
}

// delim returns the hierarchy delimiter reported for the given mailbox,
// defaulting to "/".
func (s *Session) delim(name string) string {
	data, err := s.client.List("", name, nil).Collect()
	if err != nil || len(data) == 0 || data[0].Delim == 0 {
		return "/"
	}
	return string(data[0].Delim)
}

// folder adapts one IMAP mailbox to the mail.Folder contract.
type folder struct {
	s    *Session
	name string
}

func (f *folder) Name() string { return f.name }

// Subfolders lists the immediate children of the folder.
func (f *folder) Subfolders(_ context.Context) ([]mail.Folder, error) {
	pattern := f.name + f.s.delim(f.name) + "%"
	data, err := f.s.client.List("", pattern, nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing subfolders of %s: %w", f.name, err)
	}

	var out []mail.Folder
	for _, d := range data {
		selectable := true
		for _, attr := range d.Attrs {
			if attr == imap.MailboxAttrNoSelect {
				selectable = false
				break
			}
		}
		if selectable {
			out = append(out, &folder{s: f.s, name: d.Mailbox})
		}
	}
	return out, nil
}

// Messages fetches up to max of the most recent messages in the folder,
// newest first, with bodies parsed into text/HTML parts and attachment
// content.
func (f *folder) Messages(_ context.Context, max int) ([]mail.Message, error) {
	selData, err := f.s.client.Select(f.name, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", f.name, err)
	}

	total := selData.NumMessages
	if total == 0 {
		return nil, nil
	}

	lo := uint32(1)
	if max > 0 && total > uint32(max) {
		lo = total - uint32(max) + 1
	}

	var seqSet imap.SeqSet
	seqSet.AddRange(lo, total)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:     true,
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	}

	bufs, err := f.s.client.Fetch(seqSet, fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching messages from %s: %w", f.name, err)
	}

	msgs := make([]mail.Message, 0, len(bufs))
	for _, buf := range bufs {
		msgs = append(msgs, messageFromBuffer(f.name, buf, bodySection))
	}

	// Newest first.
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].ReceivedAt().After(msgs[j].ReceivedAt())
	})

	return msgs, nil
}

// message is a fully materialized IMAP message.
type message struct {
	id       string
	subject  string
	text     string
	html     string
	sender   string
	received time.Time
	atts     []mail.Attachment
}

func (m *message) ID() string                     { return m.id }
func (m *message) Subject() string                { return m.subject }
func (m *message) TextBody() string               { return m.text }
func (m *message) HTMLBody() string               { return m.html }
func (m *message) SenderAddress() string          { return m.sender }
func (m *message) ReceivedAt() time.Time          { return m.received }
func (m *message) Attachments() []mail.Attachment { return m.atts }

// messageFromBuffer converts a fetched buffer into a message, parsing
// the MIME body into its parts.
func messageFromBuffer(
	folderName string,
	buf *imapclient.FetchMessageBuffer,
	section *imap.FetchItemBodySection,
) *message {
	m := &message{
		id:       fmt.Sprintf("%s/%d", folderName, buf.UID),
		received: buf.InternalDate,
	}

	if env := buf.Envelope; env != nil {
		m.subject = env.Subject
		if env.MessageID != "" {
			m.id = env.MessageID
		}
		if !env.Date.IsZero() && m.received.IsZero() {
			m.received = env.Date
		}
		if len(env.From) > 0 {
			m.sender = env.From[0].Addr()
		}
	}

	if raw := buf.FindBodySection(section); raw != nil {
		text, html, atts := parseBody(raw)
		m.text = text
		m.html = html
		for _, a := range atts {
			m.atts = append(m.atts, a)
		}
	}

	return m
}
