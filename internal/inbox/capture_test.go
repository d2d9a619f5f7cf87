package inbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/khanhvu/outreach/internal/mail"
	"github.com/khanhvu/outreach/internal/model"
	"github.com/khanhvu/outreach/internal/store"
	"github.com/khanhvu/outreach/tests/testutil"
)

func newTestCapture(t *testing.T, st store.Store, maxSizeMB int) (*Capture, string) {
	t.Helper()

	baseDir := t.TempDir()
	c := NewCapture(st, model.AttachmentConfig{BaseDir: baseDir, MaxSizeMB: maxSizeMB}, zap.NewNop())
	return c, baseDir
}

func captureMsg(atts ...mail.Attachment) *fakeMessage {
	return &fakeMessage{
		id:       "<reply@example.com>",
		received: time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC),
		atts:     atts,
	}
}

func TestCaptureSavesAndHashes(t *testing.T) {
	st := testutil.NewTestStore(t)
	c, baseDir := newTestCapture(t, st, 50)

	data := []byte("workbook-bytes")
	msg := captureMsg(&fakeAttachment{name: "quote.xlsx", data: data})

	saved, err := c.Run(context.Background(), "Acme Textiles", "ABA#1A2B3C4D", "SS26-DENIM",
		msg, msg.ID(), msg.ReceivedAt())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if saved != 1 {
		t.Fatalf("saved = %d, want 1", saved)
	}

	wantPath := filepath.Join(baseDir, "SS26-DENIM", "Acme Textiles_ABA#1A2B3C4D.xlsx")
	got, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(got) != string(data) {
		t.Error("saved content differs from attachment content")
	}

	recs, err := st.RecentAttachments(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentAttachments: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}

	rec := recs[0]
	if rec.SavedPath != wantPath {
		t.Errorf("SavedPath = %q, want %q", rec.SavedPath, wantPath)
	}
	if rec.FileExt != ".xlsx" || rec.FileSizeBytes != int64(len(data)) {
		t.Errorf("record = %+v", rec)
	}

	sum := sha256.Sum256(data)
	if rec.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("SHA256 = %q, want content hash", rec.SHA256)
	}
}

func TestCaptureNoCompanyUsesTokenName(t *testing.T) {
	st := testutil.NewTestStore(t)
	c, baseDir := newTestCapture(t, st, 50)

	msg := captureMsg(&fakeAttachment{name: "quote.pdf", data: []byte("pdf")})
	if _, err := c.Run(context.Background(), "", "ABA#1A2B3C4D", "SS26-DENIM",
		msg, msg.ID(), msg.ReceivedAt()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantPath := filepath.Join(baseDir, "SS26-DENIM", "ABA#1A2B3C4D.pdf")
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("expected %s: %v", wantPath, err)
	}
}

func TestCaptureUncategorizedFallback(t *testing.T) {
	st := testutil.NewTestStore(t)
	c, baseDir := newTestCapture(t, st, 50)

	msg := captureMsg(&fakeAttachment{name: "quote.xlsx", data: []byte("x")})
	if _, err := c.Run(context.Background(), "Acme", "ABA#1A2B3C4D", "",
		msg, msg.ID(), msg.ReceivedAt()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	dir := filepath.Join(baseDir, UncategorizedBucket)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d files in uncategorized bucket, want 1", len(entries))
	}
}

func TestCaptureCollisionSuffix(t *testing.T) {
	st := testutil.NewTestStore(t)
	c, baseDir := newTestCapture(t, st, 50)

	msg := captureMsg(
		&fakeAttachment{name: "quote.xlsx", data: []byte("first")},
		&fakeAttachment{name: "quote-v2.xlsx", data: []byte("second")},
	)

	saved, err := c.Run(context.Background(), "Acme", "ABA#1A2B3C4D", "SS26-DENIM",
		msg, msg.ID(), msg.ReceivedAt())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if saved != 2 {
		t.Fatalf("saved = %d, want 2", saved)
	}

	dir := filepath.Join(baseDir, "SS26-DENIM")
	first := filepath.Join(dir, "Acme_ABA#1A2B3C4D.xlsx")
	second := filepath.Join(dir, "Acme_ABA#1A2B3C4D(1).xlsx")

	for _, p := range []string{first, second} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s: %v", p, err)
		}
	}

	got, _ := os.ReadFile(second)
	if string(got) != "second" {
		t.Errorf("suffixed file content = %q", got)
	}
}

func TestCaptureOversizedRecordedNotSaved(t *testing.T) {
	st := testutil.NewTestStore(t)
	c, baseDir := newTestCapture(t, st, 1) // 1 MiB ceiling

	big := make([]byte, 2*1024*1024)
	msg := captureMsg(&fakeAttachment{name: "huge.zip", data: big})

	saved, err := c.Run(context.Background(), "Acme", "ABA#1A2B3C4D", "SS26-DENIM",
		msg, msg.ID(), msg.ReceivedAt())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if saved != 0 {
		t.Errorf("saved = %d, want 0", saved)
	}

	recs, _ := st.RecentAttachments(context.Background(), 10)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want the oversized attachment recorded", len(recs))
	}
	if recs[0].SavedPath != "" || recs[0].SHA256 != "" {
		t.Errorf("oversized record should have empty path and hash: %+v", recs[0])
	}
	if recs[0].FileSizeBytes != int64(len(big)) {
		t.Errorf("size = %d", recs[0].FileSizeBytes)
	}

	entries, _ := os.ReadDir(filepath.Join(baseDir, "SS26-DENIM"))
	if len(entries) != 0 {
		t.Errorf("oversized attachment was written to disk")
	}
}

func TestCaptureSaveFailureRecorded(t *testing.T) {
	st := testutil.NewTestStore(t)
	c, _ := newTestCapture(t, st, 50)

	msg := captureMsg(&fakeAttachment{name: "quote.xlsx", data: []byte("x"), failSave: true})

	saved, err := c.Run(context.Background(), "Acme", "ABA#1A2B3C4D", "SS26-DENIM",
		msg, msg.ID(), msg.ReceivedAt())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if saved != 0 {
		t.Errorf("saved = %d, want 0", saved)
	}

	recs, _ := st.RecentAttachments(context.Background(), 10)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].SavedPath != "" {
		t.Errorf("failed save should leave the path empty: %+v", recs[0])
	}
}

func TestCaptureNamelessAttachment(t *testing.T) {
	st := testutil.NewTestStore(t)
	c, _ := newTestCapture(t, st, 50)

	msg := captureMsg(&fakeAttachment{name: "", data: []byte("x")})

	saved, err := c.Run(context.Background(), "Acme", "ABA#1A2B3C4D", "SS26-DENIM",
		msg, msg.ID(), msg.ReceivedAt())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if saved != 1 {
		t.Errorf("saved = %d, want 1", saved)
	}

	recs, _ := st.RecentAttachments(context.Background(), 10)
	if recs[0].FileExt != "" {
		t.Errorf("nameless attachment ext = %q", recs[0].FileExt)
	}
}

func TestCaptureNoAttachments(t *testing.T) {
	st := testutil.NewTestStore(t)
	c, _ := newTestCapture(t, st, 50)

	msg := captureMsg()
	saved, err := c.Run(context.Background(), "Acme", "ABA#1A2B3C4D", "SS26-DENIM",
		msg, msg.ID(), msg.ReceivedAt())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if saved != 0 {
		t.Errorf("saved = %d, want 0", saved)
	}

	recs, _ := st.RecentAttachments(context.Background(), 10)
	if len(recs) != 0 {
		t.Errorf("no records expected, got %d", len(recs))
	}
}
