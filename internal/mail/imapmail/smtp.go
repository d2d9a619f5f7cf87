package imapmail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	gomail "github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/khanhvu/outreach/internal/mail"
)

// Send composes msg as a MIME message, submits it over SMTP, and
// appends a copy to the sent folder so it can be located afterwards.
func (s *Session) Send(_ context.Context, msg mail.Outbound) error {
	msgID := uuid.New().String() + "@" + s.cfg.SMTPHost

	raw, err := s.compose(msg, msgID)
	if err != nil {
		return fmt.Errorf("composing message to %s: %w", msg.To, err)
	}

	rcpts := []string{msg.To}
	for _, cc := range strings.Split(msg.CC, ",") {
		if cc = strings.TrimSpace(cc); cc != "" {
			rcpts = append(rcpts, cc)
		}
	}

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	if s.cfg.TLS {
		err = s.sendWithTLS(addr, rcpts, raw)
	} else {
		err = s.sendWithStartTLS(addr, rcpts, raw)
	}
	if err != nil {
		return err
	}

	// Keep the sent copy findable. Append failure degrades identifier
	// resolution, it does not fail the send.
	s.appendToSent(raw)

	return nil
}

// compose renders msg to wire format with an HTML part and file
// attachments. Unreadable attachment paths are skipped.
func (s *Session) compose(msg mail.Outbound, msgID string) ([]byte, error) {
	var h gomail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*gomail.Address{{Address: s.cfg.Username}})
	h.SetAddressList("To", []*gomail.Address{{Address: msg.To}})
	if msg.CC != "" {
		var ccs []*gomail.Address
		for _, cc := range strings.Split(msg.CC, ",") {
			if cc = strings.TrimSpace(cc); cc != "" {
				ccs = append(ccs, &gomail.Address{Address: cc})
			}
		}
		h.SetAddressList("Cc", ccs)
	}
	h.SetSubject(msg.Subject)
	h.SetMsgIDList("Message-Id", []string{msgID})
	for k, v := range msg.Headers {
		h.Set(k, v)
	}

	var buf bytes.Buffer
	mw, err := gomail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	var ih gomail.InlineHeader
	ih.Set("Content-Type", "text/html; charset=utf-8")
	bw, err := mw.CreateSingleInline(ih)
	if err != nil {
		return nil, fmt.Errorf("creating body part: %w", err)
	}
	if _, err := io.WriteString(bw, msg.HTMLBody); err != nil {
		return nil, fmt.Errorf("writing body: %w", err)
	}
	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("closing body part: %w", err)
	}

	for _, path := range msg.AttachmentPaths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}

		var ah gomail.AttachmentHeader
		ah.SetFilename(filepath.Base(path))
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating attachment part %s: %w", path, err)
		}
		_, copyErr := io.Copy(aw, f)
		f.Close()
		if copyErr != nil {
			return nil, fmt.Errorf("writing attachment %s: %w", path, copyErr)
		}
		if err := aw.Close(); err != nil {
			return nil, fmt.Errorf("closing attachment part %s: %w", path, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}

	return buf.Bytes(), nil
}

// appendToSent stores a copy of the raw message in the sent folder.
func (s *Session) appendToSent(raw []byte) {
	cmd := s.client.Append(s.cfg.SentFolder, int64(len(raw)), &imap.AppendOptions{
		Time: time.Now(),
	})
	if _, err := cmd.Write(raw); err != nil {
		_ = cmd.Close()
		return
	}
	if err := cmd.Close(); err != nil {
		return
	}
	_, _ = cmd.Wait()
}

// FindSent searches at most lookback of the most recent sent items for a
// subject containing substr. Returns nil when no match is found.
func (s *Session) FindSent(_ context.Context, substr string, lookback int) (*mail.SentIdent, error) {
	selData, err := s.client.Select(s.cfg.SentFolder, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", s.cfg.SentFolder, err)
	}

	total := selData.NumMessages
	if total == 0 {
		return nil, nil
	}

	lo := uint32(1)
	if lookback > 0 && total > uint32(lookback) {
		lo = total - uint32(lookback) + 1
	}

	var seqSet imap.SeqSet
	seqSet.AddRange(lo, total)

	fetchOpts := &imap.FetchOptions{
		Envelope:     true,
		UID:          true,
		InternalDate: true,
	}

	bufs, err := s.client.Fetch(seqSet, fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching sent items: %w", err)
	}

	sort.Slice(bufs, func(i, j int) bool {
		return bufs[i].InternalDate.After(bufs[j].InternalDate)
	})

	for _, buf := range bufs {
		env := buf.Envelope
		if env == nil || !strings.Contains(env.Subject, substr) {
			continue
		}

		sentAt := buf.InternalDate
		if sentAt.IsZero() {
			sentAt = env.Date
		}

		return &mail.SentIdent{
			MessageID: env.MessageID,
			// IMAP has no conversation identifier; a fresh send anchors
			// its own thread.
			ThreadID: env.MessageID,
			SentAt:   sentAt,
		}, nil
	}

	return nil, nil
}

// sendWithTLS submits a message over an implicit TLS connection.
func (s *Session) sendWithTLS(addr string, rcpts []string, raw []byte) error {
	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	return submit(client, s.cfg.Username, rcpts, raw)
}

// sendWithStartTLS submits a message using STARTTLS.
func (s *Session) sendWithStartTLS(addr string, rcpts []string, raw []byte) error {
	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	return submit(client, s.cfg.Username, rcpts, raw)
}

// submit sends a message using an already-authenticated SMTP client.
func submit(client *smtp.Client, from string, rcpts []string, raw []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT TO %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write(raw); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing message body: %w", err)
	}

	return client.Quit()
}
