package vault

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pii-redactor/sidecar/internal/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS mappings (
	session_id  TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	original    TEXT NOT NULL,
	token       TEXT NOT NULL,
	created_at  REAL NOT NULL DEFAULT (julianday('now')),
	PRIMARY KEY (session_id, entity_type, original)
);
CREATE INDEX IF NOT EXISTS idx_mappings_token ON mappings(session_id, token);
CREATE TABLE IF NOT EXISTS counters (
	session_id  TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	count       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, entity_type)
);
`

// SQLite is the durable Vault backend. Writes commit before
// GetOrCreateToken returns, so a crash immediately after allocation never
// produces a token the vault doesn't recognize on restart.
type SQLite struct {
	db *sql.DB

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	unavailable atomic.Bool
}

// OpenSQLite opens (creating if necessary) a durable vault at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open vault db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite allows a single writer; avoid contention errors
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create vault schema: %w", err)
	}

	return &SQLite{db: db, locks: make(map[string]*sync.Mutex)}, nil
}

func (v *SQLite) sessionLock(session string) *sync.Mutex {
	v.locksMu.Lock()
	defer v.locksMu.Unlock()
	lk, ok := v.locks[session]
	if !ok {
		lk = &sync.Mutex{}
		v.locks[session] = lk
	}
	return lk
}

func (v *SQLite) fail(err error) error {
	v.unavailable.Store(true)
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (v *SQLite) checkAvailable() error {
	if v.unavailable.Load() {
		return ErrUnavailable
	}
	return nil
}

func (v *SQLite) GetOrCreateToken(ctx context.Context, session string, typ entity.Type, value string) (string, error) {
	if err := v.checkAvailable(); err != nil {
		return "", err
	}
	lk := v.sessionLock(session)
	lk.Lock()
	defer lk.Unlock()

	var existing string
	err := v.db.QueryRowContext(ctx,
		`SELECT token FROM mappings WHERE session_id = ? AND entity_type = ? AND original = ?`,
		session, string(typ), value,
	).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return "", v.fail(err)
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return "", v.fail(err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT count FROM counters WHERE session_id = ? AND entity_type = ?`,
		session, string(typ),
	).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return "", v.fail(err)
	}
	count++
	token := entity.FormatToken(typ, count)

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO counters (session_id, entity_type, count) VALUES (?, ?, ?)`,
		session, string(typ), count,
	); err != nil {
		return "", v.fail(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO mappings (session_id, entity_type, original, token) VALUES (?, ?, ?, ?)`,
		session, string(typ), value, token,
	); err != nil {
		return "", v.fail(err)
	}
	if err := tx.Commit(); err != nil {
		return "", v.fail(err)
	}
	return token, nil
}

func (v *SQLite) Rehydrate(ctx context.Context, session, text string) (string, error) {
	if err := v.checkAvailable(); err != nil {
		return "", err
	}
	byToken, err := v.loadTokens(ctx, session)
	if err != nil {
		return "", v.fail(err)
	}
	if len(byToken) == 0 {
		return text, nil
	}
	return entity.TokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		if orig, ok := byToken[tok]; ok {
			return orig
		}
		return tok
	}), nil
}

func (v *SQLite) loadTokens(ctx context.Context, session string) (map[string]string, error) {
	rows, err := v.db.QueryContext(ctx,
		`SELECT token, original FROM mappings WHERE session_id = ?`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var token, original string
		if err := rows.Scan(&token, &original); err != nil {
			return nil, err
		}
		out[token] = original
	}
	return out, rows.Err()
}

func (v *SQLite) Dump(ctx context.Context, session string) ([]Entry, error) {
	if err := v.checkAvailable(); err != nil {
		return nil, err
	}
	rows, err := v.db.QueryContext(ctx,
		`SELECT entity_type, token, original, created_at FROM mappings WHERE session_id = ?`, session)
	if err != nil {
		return nil, v.fail(err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var typ, token, original string
		var julian float64
		if err := rows.Scan(&typ, &token, &original, &julian); err != nil {
			return nil, v.fail(err)
		}
		out = append(out, Entry{
			Type:      entity.Type(typ),
			Token:     token,
			Original:  original,
			CreatedAt: julianToTime(julian),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, v.fail(err)
	}
	return out, nil
}

func (v *SQLite) ListSessions(ctx context.Context) ([]string, error) {
	if err := v.checkAvailable(); err != nil {
		return nil, err
	}
	rows, err := v.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM mappings`)
	if err != nil {
		return nil, v.fail(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, v.fail(err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (v *SQLite) DeleteSession(ctx context.Context, session string) error {
	if err := v.checkAvailable(); err != nil {
		return err
	}
	lk := v.sessionLock(session)
	lk.Lock()
	defer lk.Unlock()

	if _, err := v.db.ExecContext(ctx, `DELETE FROM mappings WHERE session_id = ?`, session); err != nil {
		return v.fail(err)
	}
	if _, err := v.db.ExecContext(ctx, `DELETE FROM counters WHERE session_id = ?`, session); err != nil {
		return v.fail(err)
	}
	return nil
}

func (v *SQLite) LookupToken(ctx context.Context, session, token string) (string, bool, error) {
	if err := v.checkAvailable(); err != nil {
		return "", false, err
	}
	var original string
	err := v.db.QueryRowContext(ctx,
		`SELECT original FROM mappings WHERE session_id = ? AND token = ?`, session, token,
	).Scan(&original)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, v.fail(err)
	}
	return original, true, nil
}

func (v *SQLite) LookupOriginal(ctx context.Context, session string, typ entity.Type, value string) (string, bool, error) {
	if err := v.checkAvailable(); err != nil {
		return "", false, err
	}
	var token string
	err := v.db.QueryRowContext(ctx,
		`SELECT token FROM mappings WHERE session_id = ? AND entity_type = ? AND original = ?`,
		session, string(typ), value,
	).Scan(&token)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, v.fail(err)
	}
	return token, true, nil
}

func (v *SQLite) Close() error {
	return v.db.Close()
}

func julianToTime(jd float64) time.Time {
	const unixEpochJulian = 2440587.5
	days := jd - unixEpochJulian
	return time.Unix(int64(days*86400), 0).UTC()
}
