// Package outbound renders and dispatches templated messages, each
// tagged with a fresh correlation token, and records every send in the
// log store.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/khanhvu/outreach/internal/mail"
	"github.com/khanhvu/outreach/internal/model"
	"github.com/khanhvu/outreach/internal/store"
	"github.com/khanhvu/outreach/internal/token"
)

// Custom header names stamped onto every outbound message.
const (
	HeaderToken       = "X-Tracking-Token"
	HeaderCollection  = "X-Collection-Id"
	HeaderProductDesc = "X-Product-Description"
)

// ErrNoRecipient is returned when a contact row has no email address.
var ErrNoRecipient = errors.New("recipient has no email address")

// persistErr marks a log-store write failure. A message that went out
// but could not be recorded must abort the batch: there is no durable
// queue to retry into.
type persistErr struct{ err error }

func (e *persistErr) Error() string { return e.err.Error() }
func (e *persistErr) Unwrap() error { return e.err }

// SendFailure attributes one failed send to its recipient.
type SendFailure struct {
	Recipient model.Recipient
	Err       error
}

// BulkResult reports the outcome of a batch send. Failures never abort
// the remaining batch; they are collected here per recipient.
type BulkResult struct {
	Records  []model.SendRecord
	Failures []SendFailure
}

// Sender dispatches templated messages and records them.
type Sender struct {
	store  store.Store
	issuer *token.Issuer
	cfg    model.SendConfig
	logger *zap.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewSender creates a Sender writing through st.
func NewSender(st store.Store, issuer *token.Issuer, cfg model.SendConfig, logger *zap.Logger) *Sender {
	return &Sender{
		store:  st,
		issuer: issuer,
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// SendOne renders the template for one recipient, issues a token,
// dispatches the message with the fixed attachments, resolves the sent
// message's identifiers best-effort, and upserts the send record.
func (s *Sender) SendOne(
	ctx context.Context,
	d mail.Dispatcher,
	r model.Recipient,
	tpl *template.Template,
) (model.SendRecord, error) {
	if r.Email == "" {
		return model.SendRecord{}, ErrNoRecipient
	}

	tok := s.issuer.Issue()
	subject := token.Subject(tok, s.cfg.SubjectBase)

	supplier := r.Company
	if supplier == "" {
		supplier = DefaultSupplierName
	}

	body, err := render(tpl, TemplateData{
		SupplierName: supplier,
		Token:        tok,
		CollectionID: r.CollectionID,
		ProductDesc:  r.ProductDesc,
	})
	if err != nil {
		return model.SendRecord{}, err
	}

	out := mail.Outbound{
		To:       r.Email,
		CC:       s.cfg.DefaultCC,
		Subject:  subject,
		HTMLBody: body,
		Headers: map[string]string{
			HeaderToken:       tok,
			HeaderCollection:  r.CollectionID,
			HeaderProductDesc: r.ProductDesc,
		},
		AttachmentPaths: existingFiles(s.cfg.AttachFiles),
	}

	if err := d.Send(ctx, out); err != nil {
		return model.SendRecord{}, fmt.Errorf("sending to %s: %w", r.Email, err)
	}

	rec := model.SendRecord{
		Email:        r.Email,
		Company:      r.Company,
		Token:        tok,
		Subject:      subject,
		SentOn:       time.Now().UTC(),
		Status:       model.StatusSent,
		CollectionID: r.CollectionID,
		ProductDesc:  r.ProductDesc,
	}

	// Optional enrichment: identifiers stay empty when the sent copy
	// cannot be located.
	ident, err := d.FindSent(ctx, tok, s.cfg.SentLookback)
	if err != nil {
		s.logger.Debug("sent item lookup failed",
			zap.String("token", tok), zap.Error(err))
	} else if ident != nil {
		rec.MessageID = ident.MessageID
		rec.ThreadID = ident.ThreadID
		if !ident.SentAt.IsZero() {
			rec.SentOn = ident.SentAt.UTC()
		}
	}

	if err := s.store.UpsertSend(ctx, rec); err != nil {
		return model.SendRecord{}, &persistErr{fmt.Errorf("recording send %s: %w", tok, err)}
	}

	s.logger.Info("message sent",
		zap.String("to", r.Email),
		zap.String("token", tok))

	return rec, nil
}

// BulkSend processes recipients in input order with the configured
// inter-send delay. Rows with no email address are skipped; a failing
// recipient is recorded in the result and never aborts the rest of the
// batch. Only a log-store failure stops the batch, returning the
// partial result alongside the error.
func (s *Sender) BulkSend(
	ctx context.Context,
	d mail.Dispatcher,
	recipients []model.Recipient,
	tpl *template.Template,
) (BulkResult, error) {
	var result BulkResult
	throttle := time.Duration(s.cfg.ThrottleMS) * time.Millisecond

	for i, r := range recipients {
		if r.Email == "" {
			s.logger.Warn("skipping contact with no email address",
				zap.String("company", r.Company))
			continue
		}

		rec, err := s.SendOne(ctx, d, r, tpl)
		if err != nil {
			var pe *persistErr
			if errors.As(err, &pe) {
				return result, err
			}
			s.logger.Warn("send failed",
				zap.String("to", r.Email), zap.Error(err))
			result.Failures = append(result.Failures, SendFailure{Recipient: r, Err: err})
		} else {
			result.Records = append(result.Records, rec)
		}

		// Throttle between sends to stay under the backend's
		// anti-automation limits.
		if throttle > 0 && i < len(recipients)-1 {
			s.sleep(throttle)
		}
	}

	return result, nil
}

// existingFiles filters paths down to readable regular files. A missing
// fixed attachment never aborts a send.
func existingFiles(paths []string) []string {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, p)
	}
	return out
}
