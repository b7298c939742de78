package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/property-report/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, nowFunc: time.Now}, nil
}

// Times are unix seconds so expiry compares numerically.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS identity_cache (
	id          TEXT PRIMARY KEY,
	address_key TEXT NOT NULL UNIQUE,
	identity    TEXT NOT NULL,
	cached_at   INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_identity_cache_expires_at ON identity_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetIdentity(ctx context.Context, key string) (*model.PropertyIdentity, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT identity FROM identity_cache WHERE address_key = ? AND expires_at > ?`,
		key, s.nowFunc().Unix(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get identity")
	}

	var id model.PropertyIdentity
	if err := json.Unmarshal([]byte(data), &id); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal identity")
	}
	return &id, nil
}

func (s *SQLiteStore) PutIdentity(ctx context.Context, key string, identity *model.PropertyIdentity, ttl time.Duration) error {
	if identity == nil {
		return eris.New("sqlite: put identity: nil identity")
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal identity")
	}

	now := s.nowFunc()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO identity_cache (id, address_key, identity, cached_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(address_key) DO UPDATE SET identity = excluded.identity,
		   cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		uuid.New().String(), key, string(data), now.Unix(), now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: put identity")
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM identity_cache WHERE expires_at <= ?`, s.nowFunc().Unix(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired identities")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}
