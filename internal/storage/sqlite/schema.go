package sqlite

// schema is applied on every open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS log_entries (
	id TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL,
	type TEXT NOT NULL,
	category TEXT NOT NULL,
	campaign_id TEXT NOT NULL,
	phase TEXT NOT NULL DEFAULT '',
	slot_index INTEGER NOT NULL DEFAULT -1,
	iteration INTEGER NOT NULL DEFAULT 0,
	severity TEXT NOT NULL,
	message TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_log_entries_campaign ON log_entries(campaign_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_log_entries_type ON log_entries(type);

CREATE TABLE IF NOT EXISTS saved_images (
	id TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL,
	phase TEXT NOT NULL,
	slot_index INTEGER NOT NULL,
	prompt TEXT NOT NULL,
	score INTEGER NOT NULL,
	used_polished_result INTEGER NOT NULL DEFAULT 0,
	media_type TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	b64_data TEXT NOT NULL DEFAULT '',
	saved_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saved_images_campaign ON saved_images(campaign_id, phase, slot_index);
`
