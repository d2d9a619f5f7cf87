package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/khanhvu/outreach/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertSend inserts or replaces a send record keyed by its token.
func (s *SQLiteStore) UpsertSend(ctx context.Context, rec model.SendRecord) error {
	rec.SentOn = rec.SentOn.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO send_log (
			email, company, token, subject, message_id, thread_id,
			sent_on, status, collection_id, product_desc
		) VALUES (
			:email, :company, :token, :subject, :message_id, :thread_id,
			:sent_on, :status, :collection_id, :product_desc
		)`, rec)
	if err != nil {
		return fmt.Errorf("upserting send record %s: %w", rec.Token, err)
	}

	return nil
}

// InsertReply inserts a reply record; a row with the same
// (token, from_email, received_on) key makes this a no-op.
func (s *SQLiteStore) InsertReply(ctx context.Context, rec model.ReplyRecord) error {
	rec.ReceivedOn = rec.ReceivedOn.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR IGNORE INTO reply_log (
			token, company, from_email, received_on, has_attachments,
			parse_ok, parse_json, collection_id, product_desc
		) VALUES (
			:token, :company, :from_email, :received_on, :has_attachments,
			:parse_ok, :parse_json, :collection_id, :product_desc
		)`, rec)
	if err != nil {
		return fmt.Errorf("inserting reply record %s: %w", rec.Token, err)
	}

	return nil
}

// InsertAttachment appends an attachment record.
func (s *SQLiteStore) InsertAttachment(ctx context.Context, rec model.AttachmentRecord) error {
	rec.ReceivedOn = rec.ReceivedOn.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO attachment_log (
			token, msg_id, received_on, file_name, file_ext,
			file_size_bytes, saved_path, sha256, created_at
		) VALUES (
			:token, :msg_id, :received_on, :file_name, :file_ext,
			:file_size_bytes, :saved_path, :sha256, :created_at
		)`, rec)
	if err != nil {
		return fmt.Errorf("inserting attachment record %s: %w", rec.Token, err)
	}

	return nil
}

// MetaByToken returns the metadata recorded at send time for a token.
// A token with no send record yields empty metadata, not an error:
// replies may reference tokens whose send record was pruned or never
// existed.
func (s *SQLiteStore) MetaByToken(ctx context.Context, token string) (model.SendMeta, error) {
	var meta model.SendMeta
	err := s.db.GetContext(ctx, &meta, `
		SELECT company, collection_id, product_desc
		FROM send_log WHERE token = ? ORDER BY id DESC LIMIT 1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SendMeta{}, nil
	}
	if err != nil {
		return model.SendMeta{}, fmt.Errorf("looking up token %s: %w", token, err)
	}
	return meta, nil
}

// RecentSends returns the most recent send records, newest first.
func (s *SQLiteStore) RecentSends(ctx context.Context, limit int) ([]model.SendRecord, error) {
	var recs []model.SendRecord
	err := s.db.SelectContext(ctx, &recs,
		"SELECT * FROM send_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying send log: %w", err)
	}
	return recs, nil
}

// RecentReplies returns the most recent reply records, newest first.
func (s *SQLiteStore) RecentReplies(ctx context.Context, limit int) ([]model.ReplyRecord, error) {
	var recs []model.ReplyRecord
	err := s.db.SelectContext(ctx, &recs,
		"SELECT * FROM reply_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying reply log: %w", err)
	}
	return recs, nil
}

// RecentAttachments returns the most recent attachment records, newest first.
func (s *SQLiteStore) RecentAttachments(ctx context.Context, limit int) ([]model.AttachmentRecord, error) {
	var recs []model.AttachmentRecord
	err := s.db.SelectContext(ctx, &recs,
		"SELECT * FROM attachment_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying attachment log: %w", err)
	}
	return recs, nil
}
