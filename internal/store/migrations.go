package store

import "fmt"

// Migrate creates the tables the configured feature set needs. The
// links table always exists; origins and strikes only when origin
// recording is enabled, tokens only when the token subsystem is
// enabled. All statements are idempotent.
//
// links.id carries a unique index: the id generator itself performs no
// collision check, so the constraint plus an insert retry is what keeps
// two different URLs from sharing a display id.
func (s *Store) Migrate(recordIPs, tokens bool) error {
	stmts := []string{schemaLinks[s.driver], schemaLinksHashIndex[s.driver]}
	if recordIPs {
		stmts = append(stmts, schemaOrigins[s.driver], schemaOriginsIndex[s.driver], schemaStrikes[s.driver])
	}
	if tokens {
		stmts = append(stmts, schemaTokens[s.driver])
	}

	for _, stmt := range stmts {
		if stmt == "" {
			continue // index declared inline in the table DDL
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

var schemaLinks = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS links (
		id TEXT NOT NULL UNIQUE,
		hash BLOB NOT NULL,
		link TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	"mysql": `CREATE TABLE IF NOT EXISTS links (
		id VARCHAR(16) NOT NULL UNIQUE,
		hash VARBINARY(32) NOT NULL,
		link TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_links_hash (hash)
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS links (
		id TEXT NOT NULL UNIQUE,
		hash BYTEA NOT NULL,
		link TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// Dedup looks up by fingerprint on every create; the index is not
// unique because racing identical requests are allowed to produce
// duplicate fingerprints. MySQL lacks CREATE INDEX IF NOT EXISTS, so
// its indexes live inline in the table DDL above.
var schemaLinksHashIndex = map[string]string{
	"sqlite":   `CREATE INDEX IF NOT EXISTS idx_links_hash ON links (hash)`,
	"postgres": `CREATE INDEX IF NOT EXISTS idx_links_hash ON links (hash)`,
}

var schemaOrigins = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS origins (
		id TEXT NOT NULL,
		created_by BLOB NOT NULL
	)`,
	"mysql": `CREATE TABLE IF NOT EXISTS origins (
		id VARCHAR(16) NOT NULL,
		created_by VARBINARY(64) NOT NULL,
		INDEX idx_origins_id (id)
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS origins (
		id TEXT NOT NULL,
		created_by BYTEA NOT NULL
	)`,
}

var schemaOriginsIndex = map[string]string{
	"sqlite":   `CREATE INDEX IF NOT EXISTS idx_origins_id ON origins (id)`,
	"postgres": `CREATE INDEX IF NOT EXISTS idx_origins_id ON origins (id)`,
}

var schemaStrikes = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS strikes (
		origin BLOB NOT NULL UNIQUE,
		amount INTEGER NOT NULL
	)`,
	"mysql": `CREATE TABLE IF NOT EXISTS strikes (
		origin VARBINARY(64) NOT NULL UNIQUE,
		amount SMALLINT UNSIGNED NOT NULL
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS strikes (
		origin BYTEA NOT NULL UNIQUE,
		amount INTEGER NOT NULL
	)`,
}

var schemaTokens = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS tokens (
		token TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		admin_perm INTEGER NOT NULL,
		create_link_perm INTEGER NOT NULL,
		create_token_perm INTEGER NOT NULL,
		view_ips_perm INTEGER NOT NULL
	)`,
	"mysql": `CREATE TABLE IF NOT EXISTS tokens (
		token VARCHAR(64) NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP NOT NULL,
		admin_perm BOOL NOT NULL,
		create_link_perm BOOL NOT NULL,
		create_token_perm BOOL NOT NULL,
		view_ips_perm BOOL NOT NULL
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS tokens (
		token TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		admin_perm BOOLEAN NOT NULL,
		create_link_perm BOOLEAN NOT NULL,
		create_token_perm BOOLEAN NOT NULL,
		view_ips_perm BOOLEAN NOT NULL
	)`,
}
