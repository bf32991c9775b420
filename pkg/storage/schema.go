package storage

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		archive_channel_id BIGINT,
		username_suffix_length INT NOT NULL DEFAULT 2,
		check_post_views_interval INT NOT NULL DEFAULT 60,
		check_post_deletions_interval INT NOT NULL DEFAULT 60,
		check_stats_interval INT NOT NULL DEFAULT 120,
		delete_old_posts_interval INT NOT NULL DEFAULT 60,
		username_change_cooldown INT NOT NULL DEFAULT 120,
		individual_allocations BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS proxy (
		id SERIAL PRIMARY KEY,
		ip TEXT NOT NULL,
		port INT NOT NULL,
		login TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS userbot (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL DEFAULT 0,
		phone TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		api_id INT NOT NULL,
		api_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		proxy_id INT REFERENCES proxy(id) ON DELETE SET NULL,
		last_service_message TEXT NOT NULL DEFAULT '',
		last_service_message_date TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS userbot_session (
		id BIGSERIAL PRIMARY KEY,
		userbot_id BIGINT NOT NULL REFERENCES userbot(id) ON DELETE CASCADE,
		mode TEXT NOT NULL,
		ping_time TIMESTAMPTZ,
		UNIQUE (userbot_id, mode)
	)`,
	`CREATE TABLE IF NOT EXISTS userbot_session_data (
		session_id BIGINT PRIMARY KEY REFERENCES userbot_session(id) ON DELETE CASCADE,
		data_json TEXT NOT NULL,
		date_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS channel (
		channel_id BIGINT PRIMARY KEY,
		access_hash BIGINT NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		owner_id BIGINT REFERENCES userbot(id) ON DELETE SET NULL,
		has_protected_content BOOLEAN NOT NULL DEFAULT FALSE,
		last_username_change TIMESTAMPTZ,
		history_days_limit INT NOT NULL DEFAULT 1,
		delete_albums BOOLEAN NOT NULL DEFAULT FALSE,
		republish_today_posts BOOLEAN NOT NULL DEFAULT FALSE,
		deletions_count_for_username_change INT NOT NULL DEFAULT 0,
		delete_posts_after_days INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS limitation (
		id BIGSERIAL PRIMARY KEY,
		channel_id BIGINT NOT NULL REFERENCES channel(channel_id) ON DELETE CASCADE,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		type TEXT NOT NULL,
		action TEXT NOT NULL,
		views BIGINT NOT NULL DEFAULT 0,
		views_difference INT NOT NULL DEFAULT 0,
		views_difference_interval INT NOT NULL DEFAULT 0,
		stats_restrictions TEXT NOT NULL DEFAULT '',
		hourly_distribution BOOLEAN NOT NULL DEFAULT FALSE,
		start_date DATE,
		end_date DATE,
		start_after_days INT NOT NULL DEFAULT 0,
		end_after_days INT NOT NULL DEFAULT 0,
		start_after_limitation_id BIGINT REFERENCES limitation(id) ON DELETE SET NULL,
		end_after_limitation_id BIGINT REFERENCES limitation(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS post_check (
		id BIGSERIAL PRIMARY KEY,
		channel_id BIGINT NOT NULL REFERENCES channel(channel_id) ON DELETE CASCADE,
		post_id INT NOT NULL,
		post_date TIMESTAMPTZ NOT NULL,
		last_check TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		views BIGINT NOT NULL,
		UNIQUE (channel_id, post_id)
	)`,
	`CREATE TABLE IF NOT EXISTS stats_snapshot (
		id BIGSERIAL PRIMARY KEY,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		channel_id BIGINT NOT NULL REFERENCES channel(channel_id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		key TEXT,
		value BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS excess (
		id BIGSERIAL PRIMARY KEY,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		channel_id BIGINT NOT NULL REFERENCES channel(channel_id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		reason TEXT NOT NULL,
		value BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS log (
		id BIGSERIAL PRIMARY KEY,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		type TEXT NOT NULL,
		userbot_id BIGINT REFERENCES userbot(id) ON DELETE SET NULL,
		channel_id BIGINT NOT NULL REFERENCES channel(channel_id) ON DELETE CASCADE,
		post_id INT,
		post_date TIMESTAMPTZ,
		post_views BIGINT,
		limitation_id BIGINT REFERENCES limitation(id) ON DELETE SET NULL,
		reason TEXT,
		comment TEXT NOT NULL DEFAULT '',
		success BOOLEAN NOT NULL DEFAULT TRUE,
		error_message TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS log_channel_created_idx ON log (channel_id, created)`,
	`CREATE INDEX IF NOT EXISTS stats_snapshot_channel_created_idx ON stats_snapshot (channel_id, type, created)`,
}
