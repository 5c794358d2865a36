package store

const Schema = `
CREATE TABLE IF NOT EXISTS job_executions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	user_id INTEGER,
	status TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME
);

CREATE INDEX IF NOT EXISTS idx_job_executions_status ON job_executions(status);
CREATE INDEX IF NOT EXISTS idx_job_executions_user ON job_executions(user_id, start_time);

CREATE TABLE IF NOT EXISTS job_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL REFERENCES job_executions(id) ON DELETE CASCADE,
	timestamp DATETIME NOT NULL,
	progress REAL,
	text TEXT NOT NULL,
	level TEXT NOT NULL DEFAULT 'normal',
	suppress_notification BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_job_messages_job ON job_messages(job_id, timestamp);

CREATE TABLE IF NOT EXISTS subscription_folders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	parent_id INTEGER REFERENCES subscription_folders(id) ON DELETE CASCADE,
	user_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	provider_id TEXT NOT NULL,
	provider_native_id TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	channel_name TEXT NOT NULL DEFAULT '',
	parent_folder_id INTEGER REFERENCES subscription_folders(id) ON DELETE CASCADE,
	user_id INTEGER NOT NULL,
	auto_download BOOLEAN,
	download_limit INTEGER,
	download_order TEXT,
	auto_delete_watched BOOLEAN,
	rewrite_playlist_indices BOOLEAN NOT NULL DEFAULT 0,
	last_synchronized DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);

CREATE TABLE IF NOT EXISTS videos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	subscription_id INTEGER NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
	provider_native_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	publish_date DATETIME NOT NULL,
	thumbnail_url TEXT NOT NULL DEFAULT '',
	uploader_name TEXT NOT NULL DEFAULT '',
	playlist_index INTEGER NOT NULL DEFAULT 0,
	downloaded_path TEXT,
	watched BOOLEAN NOT NULL DEFAULT 0,
	is_new BOOLEAN NOT NULL DEFAULT 1,
	views INTEGER NOT NULL DEFAULT 0,
	rating REAL NOT NULL DEFAULT 0.5,
	duration INTEGER NOT NULL DEFAULT 0,
	UNIQUE(subscription_id, provider_native_id)
);

CREATE INDEX IF NOT EXISTS idx_videos_subscription ON videos(subscription_id, playlist_index);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expires_at DATETIME
);
`
