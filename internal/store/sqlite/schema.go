package sqlite

// Schema applied on startup. CREATE IF NOT EXISTS keeps reopening an
// existing database cheap.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	bio           TEXT NOT NULL DEFAULT '',
	availability  TEXT NOT NULL DEFAULT '[]',
	rating        REAL NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_subjects (
	user_id TEXT NOT NULL,
	name    TEXT NOT NULL,
	level   INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (user_id, name),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_user_subjects_name ON user_subjects(name);

CREATE TABLE IF NOT EXISTS matches (
	id         TEXT PRIMARY KEY,
	initiator  TEXT NOT NULL,
	target     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL,
	UNIQUE (initiator, target),
	FOREIGN KEY (initiator) REFERENCES users(id),
	FOREIGN KEY (target) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_matches_target_status ON matches(target, status);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	match_id   TEXT NOT NULL,
	sender     TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (match_id) REFERENCES matches(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_match ON messages(match_id, created_at);
`
