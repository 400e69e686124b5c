// Package store persists links, origins, strikes, and tokens in a
// relational database. SQLite is the embedded default; MySQL and
// PostgreSQL DSNs are supported for shared deployments. All queries are
// written with ? placeholders and rebound per driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sayless/sayless/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the shared connection pool. All mutation goes through
// single self-contained statements or one explicit transaction per
// logical operation; the database's per-statement atomicity is the only
// consistency mechanism relied upon.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database identified by driver ("sqlite",
// "mysql", or "postgres") and dsn. For sqlite an empty dsn opens an
// in-memory database, which the tests use.
func Open(driver, dsn string) (*Store, error) {
	var db *sqlx.DB
	var err error

	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err == nil {
			db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		}
	case "mysql":
		db, err = sqlx.Connect("mysql", dsn)
	case "postgres":
		db, err = sqlx.Connect("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind converts ? placeholders to the driver's native form.
func (s *Store) rebind(q string) string {
	return s.db.Rebind(q)
}

// IsDuplicate reports whether err is a uniqueness-constraint violation.
// Used by the link pipeline to retry id generation on a collision.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// ---------------------------------------------------------------------------
// Links and origins
// ---------------------------------------------------------------------------

// InsertLink persists a new link and, when origin is non-nil, its
// origin record in the same transaction. Either both rows commit or
// neither does.
func (s *Store) InsertLink(ctx context.Context, link *model.Link, origin *model.Origin) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO links (id, hash, link, created_at) VALUES (?, ?, ?, ?)`),
		link.ID, link.Hash, link.Link, link.CreatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return err
		}
		return fmt.Errorf("insert link: %w", err)
	}

	if origin != nil {
		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO origins (id, created_by) VALUES (?, ?)`),
			origin.LinkID, origin.CreatedBy)
		if err != nil {
			return fmt.Errorf("insert origin: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit link insert: %w", err)
	}
	return nil
}

// GetLinkByHash returns the link with the given fingerprint, if any.
// When racing creations have produced duplicate fingerprints, the
// oldest row wins so repeated lookups stay stable.
func (s *Store) GetLinkByHash(ctx context.Context, hash []byte) (*model.Link, error) {
	var link model.Link
	err := s.db.GetContext(ctx, &link,
		s.rebind(`SELECT id, hash, link, created_at FROM links WHERE hash = ? ORDER BY created_at LIMIT 1`),
		hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get link by hash: %w", err)
	}
	return &link, nil
}

// GetLinkByID returns the link with the given display id.
func (s *Store) GetLinkByID(ctx context.Context, id string) (*model.Link, error) {
	var link model.Link
	err := s.db.GetContext(ctx, &link,
		s.rebind(`SELECT id, hash, link, created_at FROM links WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get link: %w", err)
	}
	return &link, nil
}

// CountLinks returns the total number of stored links.
func (s *Store) CountLinks(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM links`); err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return n, nil
}

// GetOrigin returns the origin record for a link, or ErrNotFound if it
// never existed or has already been pruned.
func (s *Store) GetOrigin(ctx context.Context, linkID string) (*model.Origin, error) {
	var origin model.Origin
	err := s.db.GetContext(ctx, &origin,
		s.rebind(`SELECT id, created_by FROM origins WHERE id = ?`), linkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get origin: %w", err)
	}
	return &origin, nil
}

// DeleteOriginsBefore removes all origin rows whose parent link was
// created before cutoff. Link rows are never touched. Returns the
// number of rows removed.
func (s *Store) DeleteOriginsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM origins WHERE id IN (SELECT id FROM links WHERE created_at < ?)`),
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired origins: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired origins row count: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Strikes
// ---------------------------------------------------------------------------

// GetStrikes returns the strike count for an origin address. A missing
// row counts as zero.
func (s *Store) GetStrikes(ctx context.Context, origin []byte) (uint16, error) {
	var amount uint16
	err := s.db.GetContext(ctx, &amount,
		s.rebind(`SELECT amount FROM strikes WHERE origin = ?`), origin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get strikes: %w", err)
	}
	return amount, nil
}

// AddStrikes raises the strike count for an origin by n, creating the
// row if it does not exist yet, and returns the resulting total. The
// amount column is 16 bits wide, so the sum saturates at 65535 instead
// of overflowing.
func (s *Store) AddStrikes(ctx context.Context, origin []byte, n uint16) (uint16, error) {
	var total uint16
	switch s.driver {
	case "mysql":
		// MySQL has no RETURNING; the read-back inside the same
		// transaction still observes the upserted row exactly, since the
		// upsert holds its row lock until commit.
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("begin strike upsert: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO strikes (origin, amount) VALUES (?, ?)
				ON DUPLICATE KEY UPDATE amount = LEAST(amount + VALUES(amount), 65535)`),
			origin, n)
		if err != nil {
			return 0, fmt.Errorf("add strikes: %w", err)
		}
		if err := tx.GetContext(ctx, &total,
			s.rebind(`SELECT amount FROM strikes WHERE origin = ?`), origin); err != nil {
			return 0, fmt.Errorf("add strikes read back: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("commit strike upsert: %w", err)
		}
	case "postgres":
		err := s.db.GetContext(ctx, &total,
			s.rebind(`INSERT INTO strikes (origin, amount) VALUES (?, ?)
				ON CONFLICT (origin) DO UPDATE SET amount = LEAST(strikes.amount + excluded.amount, 65535)
				RETURNING amount`),
			origin, n)
		if err != nil {
			return 0, fmt.Errorf("add strikes: %w", err)
		}
	default:
		err := s.db.GetContext(ctx, &total,
			s.rebind(`INSERT INTO strikes (origin, amount) VALUES (?, ?)
				ON CONFLICT (origin) DO UPDATE SET amount = MIN(strikes.amount + excluded.amount, 65535)
				RETURNING amount`),
			origin, n)
		if err != nil {
			return 0, fmt.Errorf("add strikes: %w", err)
		}
	}
	return total, nil
}

// ClearStrikes removes the strike row for an origin.
func (s *Store) ClearStrikes(ctx context.Context, origin []byte) error {
	if _, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM strikes WHERE origin = ?`), origin); err != nil {
		return fmt.Errorf("clear strikes: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

// InsertToken persists a newly issued token.
func (s *Store) InsertToken(ctx context.Context, tok *model.Token) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO tokens
			(token, created_at, expires_at, admin_perm, create_link_perm, create_token_perm, view_ips_perm)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
		tok.Value, tok.CreatedAt, tok.ExpiresAt,
		tok.Admin, tok.CreateLink, tok.CreateToken, tok.ViewIPs)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetToken returns the stored token row for a presented value,
// regardless of expiry. Expiry interpretation is the caller's job so
// that expired and missing tokens can be reported differently.
func (s *Store) GetToken(ctx context.Context, value string) (*model.Token, error) {
	var tok model.Token
	err := s.db.GetContext(ctx, &tok,
		s.rebind(`SELECT token, created_at, expires_at, admin_perm, create_link_perm, create_token_perm, view_ips_perm
			FROM tokens WHERE token = ?`), value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &tok, nil
}

// ExpireToken sets a token's expiry to now, the soft-delete state
// transition used for revocation. Rows are never physically removed.
// Returns the number of rows updated (zero when no such token exists).
func (s *Store) ExpireToken(ctx context.Context, value string, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE tokens SET expires_at = ? WHERE token = ?`), now, value)
	if err != nil {
		return 0, fmt.Errorf("expire token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire token row count: %w", err)
	}
	return n, nil
}

// ListTokens returns all token rows, newest first. Used by the operator
// CLI; the HTTP surface never exposes token values.
func (s *Store) ListTokens(ctx context.Context) ([]model.Token, error) {
	var toks []model.Token
	err := s.db.SelectContext(ctx, &toks,
		`SELECT token, created_at, expires_at, admin_perm, create_link_perm, create_token_perm, view_ips_perm
		FROM tokens ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return toks, nil
}
