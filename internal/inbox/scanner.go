// Package inbox scans mailbox folders for replies carrying a correlation
// token, reconciles them against the send log, and captures their
// attachments.
package inbox

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/khanhvu/outreach/internal/mail"
	"github.com/khanhvu/outreach/internal/model"
	"github.com/khanhvu/outreach/internal/store"
	"github.com/khanhvu/outreach/internal/textutil"
	"github.com/khanhvu/outreach/internal/token"
)

// Result carries the aggregate counters of one scan. Reduced counts are
// the only signal of per-item failures; the scan itself never aborts on
// them.
type Result struct {
	Scanned int
	Matched int
	Saved   int
}

// Scanner is the per-invocation inbox scanning state machine. All
// durable state lives in the log store; a Scanner holds only
// configuration and collaborators.
type Scanner struct {
	store   store.Store
	capture *Capture
	matcher *token.Matcher
	cfg     model.PollConfig
	logger  *zap.Logger
}

// NewScanner creates a Scanner.
func NewScanner(
	st store.Store,
	capture *Capture,
	matcher *token.Matcher,
	cfg model.PollConfig,
	logger *zap.Logger,
) *Scanner {
	return &Scanner{
		store:   st,
		capture: capture,
		matcher: matcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Poll enumerates the candidate folders newest-first, extracts tokens,
// writes reply records, and captures attachments. Per-item and
// per-folder errors are isolated; only log-store failures propagate.
func (s *Scanner) Poll(ctx context.Context, mb mail.Mailbox) (Result, error) {
	var result Result

	for _, folder := range s.candidateFolders(ctx, mb) {
		msgs, err := folder.Messages(ctx, s.cfg.MaxScan)
		if err != nil {
			s.logger.Warn("folder enumeration failed",
				zap.String("folder", folder.Name()), zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			result.Scanned++

			if err := s.processMessage(ctx, msg, &result); err != nil {
				return result, err
			}
		}
	}

	s.logger.Info("poll complete",
		zap.Int("scanned", result.Scanned),
		zap.Int("matched", result.Matched),
		zap.Int("saved", result.Saved))

	return result, nil
}

// processMessage handles one mailbox item. A missing token skips the
// item entirely; the returned error is non-nil only for log-store
// failures.
func (s *Scanner) processMessage(ctx context.Context, msg mail.Message, result *Result) error {
	tok, ok := s.matcher.Extract(
		msg.Subject,
		msg.TextBody,
		func() string { return textutil.StripHTML(msg.HTMLBody()) },
	)
	if !ok {
		return nil
	}

	// Send-side metadata; empty when the token has no send record.
	meta, err := s.store.MetaByToken(ctx, tok)
	if err != nil {
		return err
	}

	result.Matched++

	atts := msg.Attachments()
	received := msg.ReceivedAt()

	payload, _ := json.Marshal(model.ParsePayload{
		Subject:  msg.Subject(),
		BodyText: s.normalizeBody(msg),
	})

	rec := model.ReplyRecord{
		Token:          tok,
		Company:        meta.Company,
		FromEmail:      msg.SenderAddress(),
		ReceivedOn:     received,
		HasAttachments: len(atts) > 0,
		ParseOK:        false,
		ParseJSON:      string(payload),
		CollectionID:   meta.CollectionID,
		ProductDesc:    meta.ProductDesc,
	}

	if err := s.store.InsertReply(ctx, rec); err != nil {
		return err
	}

	if len(atts) > 0 {
		saved, err := s.capture.Run(ctx, meta.Company, tok, meta.CollectionID, msg, msg.ID(), received)
		if err != nil {
			return err
		}
		result.Saved += saved
	}

	return nil
}

// normalizeBody prefers the plain-text body; when absent it strips the
// HTML body down to text. Either way the result is bounded by the
// configured character limit.
func (s *Scanner) normalizeBody(msg mail.Message) string {
	body := msg.TextBody()
	if body == "" {
		body = textutil.CollapseWhitespace(textutil.StripHTML(msg.HTMLBody()))
	}
	return textutil.Truncate(body, s.cfg.MaxBodyChars)
}

// candidateFolders resolves the configured folder paths, or falls back
// to every store's inbox plus its immediate subfolders. Unresolvable
// paths and failing folders are dropped, never fatal.
func (s *Scanner) candidateFolders(ctx context.Context, mb mail.Mailbox) []mail.Folder {
	inboxes, err := mb.Inboxes(ctx)
	if err != nil {
		s.logger.Warn("listing inboxes failed", zap.Error(err))
		return nil
	}

	var folders []mail.Folder
	if len(s.cfg.Folders) == 0 {
		for _, inbox := range inboxes {
			folders = append(folders, inbox)
			subs, err := inbox.Subfolders(ctx)
			if err != nil {
				s.logger.Warn("listing subfolders failed",
					zap.String("folder", inbox.Name()), zap.Error(err))
				continue
			}
			folders = append(folders, subs...)
		}
	} else {
		for _, inbox := range inboxes {
			for _, raw := range s.cfg.Folders {
				parts := splitFolderPath(raw)
				if len(parts) == 0 || !strings.EqualFold(parts[0], "inbox") {
					continue
				}
				if f := resolvePath(ctx, inbox, parts[1:]); f != nil {
					folders = append(folders, f)
				}
			}
		}
	}

	// Overlapping path entries can resolve to the same folder.
	seen := make(map[string]bool, len(folders))
	uniq := folders[:0]
	for _, f := range folders {
		if seen[f.Name()] {
			continue
		}
		seen[f.Name()] = true
		uniq = append(uniq, f)
	}

	return uniq
}

// splitFolderPath breaks "Inbox/External" into its non-empty segments.
func splitFolderPath(raw string) []string {
	var parts []string
	for _, p := range strings.Split(strings.TrimSpace(raw), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// resolvePath walks the folder hierarchy one case-insensitive segment
// at a time. Any segment that cannot be resolved drops the whole path.
func resolvePath(ctx context.Context, root mail.Folder, segments []string) mail.Folder {
	current := root
	for _, seg := range segments {
		subs, err := current.Subfolders(ctx)
		if err != nil {
			return nil
		}

		var found mail.Folder
		for _, sub := range subs {
			if strings.EqualFold(lastSegment(sub.Name()), seg) {
				found = sub
				break
			}
		}
		if found == nil {
			return nil
		}
		current = found
	}
	return current
}

// lastSegment returns the leaf name of a possibly hierarchical folder
// name ("INBOX/External" -> "External").
func lastSegment(name string) string {
	for _, delim := range []string{"/", "."} {
		if i := strings.LastIndex(name, delim); i >= 0 && i+1 < len(name) {
			name = name[i+1:]
		}
	}
	return name
}
