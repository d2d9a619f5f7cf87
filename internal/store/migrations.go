package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS send_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL DEFAULT '',
	company       TEXT NOT NULL DEFAULT '',
	token         TEXT NOT NULL UNIQUE,
	subject       TEXT NOT NULL DEFAULT '',
	message_id    TEXT NOT NULL DEFAULT '',
	thread_id     TEXT NOT NULL DEFAULT '',
	sent_on       DATETIME NOT NULL,
	status        TEXT NOT NULL DEFAULT '',
	collection_id TEXT NOT NULL DEFAULT '',
	product_desc  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS reply_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	token           TEXT NOT NULL,
	company         TEXT NOT NULL DEFAULT '',
	from_email      TEXT NOT NULL DEFAULT '',
	received_on     DATETIME NOT NULL,
	has_attachments INTEGER NOT NULL DEFAULT 0,
	parse_ok        INTEGER NOT NULL DEFAULT 0,
	parse_json      TEXT NOT NULL DEFAULT '',
	collection_id   TEXT NOT NULL DEFAULT '',
	product_desc    TEXT NOT NULL DEFAULT '',
	UNIQUE(token, from_email, received_on)
);

CREATE TABLE IF NOT EXISTS attachment_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	token           TEXT NOT NULL,
	msg_id          TEXT NOT NULL DEFAULT '',
	received_on     DATETIME NOT NULL,
	file_name       TEXT NOT NULL DEFAULT '',
	file_ext        TEXT NOT NULL DEFAULT '',
	file_size_bytes INTEGER NOT NULL DEFAULT 0,
	saved_path      TEXT NOT NULL DEFAULT '',
	sha256          TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_send_log_token ON send_log(token);
CREATE INDEX IF NOT EXISTS idx_reply_log_token ON reply_log(token);
CREATE INDEX IF NOT EXISTS idx_attachment_log_token ON attachment_log(token);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
