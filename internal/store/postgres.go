package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/property-report/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"get_identity":    `SELECT identity FROM identity_cache WHERE address_key = $1 AND expires_at > now()`,
	"delete_expired":  `DELETE FROM identity_cache WHERE expires_at <= now()`,
	"upsert_identity": upsertIdentitySQL,
}

const upsertIdentitySQL = `INSERT INTO identity_cache (id, address_key, identity, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5)
 ON CONFLICT (address_key) DO UPDATE SET identity = EXCLUDED.identity,
   cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(5)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS identity_cache (
	id          TEXT PRIMARY KEY,
	address_key TEXT NOT NULL UNIQUE,
	identity    JSONB NOT NULL,
	cached_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_identity_cache_expires_at ON identity_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) GetIdentity(ctx context.Context, key string) (*model.PropertyIdentity, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT identity FROM identity_cache WHERE address_key = $1 AND expires_at > now()`,
		key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get identity")
	}

	var id model.PropertyIdentity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal identity")
	}
	return &id, nil
}

func (s *PostgresStore) PutIdentity(ctx context.Context, key string, identity *model.PropertyIdentity, ttl time.Duration) error {
	if identity == nil {
		return eris.New("postgres: put identity: nil identity")
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal identity")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, upsertIdentitySQL,
		uuid.New().String(), key, data, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: put identity")
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM identity_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired identities")
	}
	return int(tag.RowsAffected()), nil
}
