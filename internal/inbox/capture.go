package inbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhvu/outreach/internal/mail"
	"github.com/khanhvu/outreach/internal/model"
	"github.com/khanhvu/outreach/internal/store"
	"github.com/khanhvu/outreach/internal/textutil"
)

// UncategorizedBucket receives attachments whose collection id is empty
// or sanitizes away entirely.
const UncategorizedBucket = "uncategorized"

// Capture persists message attachments under a per-collection directory,
// hashing content and enforcing the size ceiling. Every attachment gets
// a log record; only successfully written files count as saved.
type Capture struct {
	store    store.Store
	baseDir  string
	maxBytes int64
	logger   *zap.Logger
}

// NewCapture creates a Capture writing files under cfg.BaseDir.
// cfg.MaxSizeMB of 0 disables the ceiling.
func NewCapture(st store.Store, cfg model.AttachmentConfig, logger *zap.Logger) *Capture {
	return &Capture{
		store:    st,
		baseDir:  cfg.BaseDir,
		maxBytes: int64(cfg.MaxSizeMB) * 1024 * 1024,
		logger:   logger,
	}
}

// Run saves every attachment of msg and appends a record for each one.
// Oversized attachments and failed saves are recorded with an empty
// path and hash. The returned count covers files actually written to
// disk; the error is non-nil only for log-store failures.
func (c *Capture) Run(
	ctx context.Context,
	company, tok, collectionID string,
	msg mail.Message,
	msgID string,
	receivedAt time.Time,
) (int, error) {
	atts := msg.Attachments()
	if len(atts) == 0 {
		return 0, nil
	}

	safeCompany := textutil.SanitizeFileName(company, "")
	safeToken := textutil.SanitizeFileName(tok, "")
	safeCollection := textutil.SanitizeFileName(collectionID, UncategorizedBucket)

	destDir := filepath.Join(c.baseDir, safeCollection)
	dirErr := os.MkdirAll(destDir, 0o755)
	if dirErr != nil {
		c.logger.Warn("attachment directory unavailable",
			zap.String("dir", destDir), zap.Error(dirErr))
	}

	nameCore := safeToken
	if safeCompany != "" {
		nameCore = safeCompany + "_" + safeToken
	}

	saved := 0
	for i, att := range atts {
		origName := textutil.SanitizeFileName(att.Filename(), fmt.Sprintf("attachment_%d", i+1))
		ext := strings.ToLower(filepath.Ext(origName))
		target := nameCore + ext

		rec := model.AttachmentRecord{
			Token:         tok,
			MsgID:         msgID,
			ReceivedOn:    receivedAt,
			FileName:      target,
			FileExt:       ext,
			FileSizeBytes: att.Size(),
			CreatedAt:     time.Now().UTC(),
		}

		if c.maxBytes > 0 && att.Size() > c.maxBytes {
			// Over the ceiling: keep the event auditable, skip the file.
			if err := c.store.InsertAttachment(ctx, rec); err != nil {
				return saved, err
			}
			continue
		}

		if dirErr != nil {
			if err := c.store.InsertAttachment(ctx, rec); err != nil {
				return saved, err
			}
			continue
		}

		savePath := uniquePath(destDir, target)
		if err := att.SaveTo(savePath); err != nil {
			c.logger.Warn("attachment save failed",
				zap.String("path", savePath), zap.Error(err))
			if err := c.store.InsertAttachment(ctx, rec); err != nil {
				return saved, err
			}
			continue
		}

		rec.SavedPath = savePath
		rec.SHA256 = sha256OfFile(savePath)

		if err := c.store.InsertAttachment(ctx, rec); err != nil {
			return saved, err
		}
		saved++
	}

	return saved, nil
}

// uniquePath returns baseName inside destDir, appending (1), (2), ...
// before the extension until the name is free. Never overwrites.
func uniquePath(destDir, baseName string) string {
	ext := filepath.Ext(baseName)
	name := strings.TrimSuffix(baseName, ext)

	p := filepath.Join(destDir, baseName)
	for idx := 1; ; idx++ {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
		p = filepath.Join(destDir, fmt.Sprintf("%s(%d)%s", name, idx, ext))
	}
}

// sha256OfFile computes the content hash of a saved file, streaming in
// fixed-size chunks. Hash failures degrade to an empty string.
func sha256OfFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, 1024*1024)); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
