package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig on a missing file: %v", err)
	}

	if cfg.Token.Prefix != "ABA#" {
		t.Errorf("token prefix = %q", cfg.Token.Prefix)
	}
	if cfg.Send.ThrottleMS != 800 {
		t.Errorf("throttle = %d", cfg.Send.ThrottleMS)
	}
	if cfg.Send.SentLookback != 50 {
		t.Errorf("sent lookback = %d", cfg.Send.SentLookback)
	}
	if cfg.Poll.MaxScan != 400 {
		t.Errorf("max scan = %d", cfg.Poll.MaxScan)
	}
	if cfg.Poll.MaxBodyChars != 100000 {
		t.Errorf("max body chars = %d", cfg.Poll.MaxBodyChars)
	}
	if cfg.Attachments.MaxSizeMB != 50 {
		t.Errorf("max attachment size = %d", cfg.Attachments.MaxSizeMB)
	}
	if !cfg.Mail.TLS || cfg.Mail.IMAPPort != "993" {
		t.Errorf("mail defaults = %+v", cfg.Mail)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
db_path: /var/lib/outreach/outreach.db
token:
  prefix: "XYZ#"
send:
  subject_base: Request for Quotation
  throttle_ms: 1200
  attach_files:
    - /srv/specs/techpack.pdf
poll:
  folders:
    - Inbox
    - Inbox/External
mail:
  imap_host: imap.example.com
  smtp_host: smtp.example.com
  username: buyer@example.com
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.DBPath != "/var/lib/outreach/outreach.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.Token.Prefix != "XYZ#" {
		t.Errorf("token prefix = %q", cfg.Token.Prefix)
	}
	if cfg.Send.SubjectBase != "Request for Quotation" || cfg.Send.ThrottleMS != 1200 {
		t.Errorf("send config = %+v", cfg.Send)
	}
	if len(cfg.Poll.Folders) != 2 || cfg.Poll.Folders[1] != "Inbox/External" {
		t.Errorf("folders = %v", cfg.Poll.Folders)
	}
	if cfg.Mail.IMAPHost != "imap.example.com" {
		t.Errorf("imap host = %q", cfg.Mail.IMAPHost)
	}

	// Unset keys keep their defaults.
	if cfg.Poll.MaxScan != 400 {
		t.Errorf("max scan default lost: %d", cfg.Poll.MaxScan)
	}
	if cfg.Send.SentFolder != "Sent" {
		t.Errorf("sent folder default lost: %q", cfg.Send.SentFolder)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("send: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
