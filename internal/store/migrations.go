package store

// migration is one monotonically numbered, idempotently-applied schema step.
// Failure to apply a migration aborts startup.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL
		)`,
	},
	{
		version: 2,
		sql: `CREATE TABLE revoked_tokens (
			jti TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			revoked_at TIMESTAMP NOT NULL
		)`,
	},
	{
		version: 3,
		sql:     `CREATE INDEX idx_revoked_tokens_revoked_at ON revoked_tokens (revoked_at)`,
	},
}
