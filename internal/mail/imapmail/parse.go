package imapmail

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	gomail "github.com/emersion/go-message/mail"
)

// attachment holds one decoded attachment in memory. Attachment sizes
// are already governed by the capture pipeline's ceiling downstream.
type attachment struct {
	filename string
	data     []byte
}

func (a *attachment) Filename() string { return a.filename }
func (a *attachment) Size() int64      { return int64(len(a.data)) }

// SaveTo writes the attachment content to the given local path.
func (a *attachment) SaveTo(path string) error {
	if err := os.WriteFile(path, a.data, 0o644); err != nil {
		return fmt.Errorf("saving attachment %s: %w", a.filename, err)
	}
	return nil
}

// parseBody parses a raw RFC 2822 message using go-message and extracts
// the text/plain body, text/html body, and attachments with content.
func parseBody(raw []byte) (textBody, htmlBody string, atts []*attachment) {
	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// If parsing fails, treat the whole thing as plain text.
		return string(raw), "", nil
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *gomail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html"):
				htmlBody = string(body)
			}

		case *gomail.AttachmentHeader:
			filename, _ := h.Filename()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			atts = append(atts, &attachment{
				filename: filename,
				data:     body,
			})
		}
	}

	return textBody, htmlBody, atts
}
