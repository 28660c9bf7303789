package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/duelcard/internal/domain/model"
)

const challengeColumns = `id, map_id, challenger_id, challenger_name, champion_id, champion_name, champion_avatar_url, champion, version, created_at, updated_at`

const schemaSQL = `CREATE TABLE IF NOT EXISTS challenges (
	id              TEXT PRIMARY KEY,
	map_id          BIGINT NOT NULL DEFAULT 0,
	challenger_id   TEXT NOT NULL,
	challenger_name TEXT NOT NULL,
	champion_id     TEXT NOT NULL,
	champion_name   TEXT NOT NULL,
	champion_avatar_url TEXT NOT NULL DEFAULT '',
	champion        JSONB NOT NULL,
	version         BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
)`

// dbtx is the subset of pgxpool.Pool the store uses.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps challenges in one table. Champion replacement is a
// single UPDATE guarded by the version column.
type PostgresStore struct {
	db   dbtx
	opts options
}

// NewPostgresStore wraps a pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{db: pool, opts: newOptions(opts)}
}

// OpenPostgres creates a pool for dsn and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the challenges table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, ch Challenge) (Challenge, error) {
	ch, err := prepare(ch, s.opts.now())
	if err != nil {
		return Challenge{}, err
	}
	rec, err := championJSON(ch.Champion)
	if err != nil {
		return Challenge{}, err
	}
	tag, err := s.db.Exec(ctx,
		`INSERT INTO challenges (`+challengeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING`,
		ch.ID, ch.MapID, ch.ChallengerID, ch.ChallengerName, ch.ChampionID, ch.ChampionName,
		ch.ChampionAvatar, rec, ch.Version, ch.CreatedAt, ch.UpdatedAt)
	if err != nil {
		return Challenge{}, fmt.Errorf("create challenge %s: %w", ch.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return Challenge{}, ErrAlreadyExists
	}
	return ch, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (Challenge, error) {
	row := s.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id)
	ch, err := scanChallenge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Challenge{}, ErrNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("get challenge %s: %w", id, err)
	}
	return ch, nil
}

// ReplaceChampion implements Store.
func (s *PostgresStore) ReplaceChampion(ctx context.Context, id string, expectedVersion int64, next ChampionUpdate) (Challenge, error) {
	if err := checkUpdate(next); err != nil {
		return Challenge{}, err
	}
	rec, err := championJSON(next.Record)
	if err != nil {
		return Challenge{}, err
	}
	row := s.db.QueryRow(ctx,
		`UPDATE challenges
		 SET champion_id = $3, champion_name = $4, champion_avatar_url = $5, champion = $6,
		     version = version + 1, updated_at = $7
		 WHERE id = $1 AND version = $2
		 RETURNING `+challengeColumns,
		id, expectedVersion, next.ID, next.Name, next.AvatarURL, rec, s.opts.now())
	ch, err := scanChallenge(row)
	if err == nil {
		return ch, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Challenge{}, fmt.Errorf("replace champion of %s: %w", id, err)
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM challenges WHERE id = $1)`, id).Scan(&exists); err != nil {
		return Challenge{}, fmt.Errorf("replace champion of %s: %w", id, err)
	}
	if !exists {
		return Challenge{}, ErrNotFound
	}
	return Challenge{}, ErrVersionConflict
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete challenge %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM challenges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count challenges: %w", err)
	}
	return n, nil
}

func championJSON(r model.ScoreRecord) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode champion: %w", err)
	}
	return data, nil
}

func scanChallenge(row pgx.Row) (Challenge, error) {
	var (
		ch  Challenge
		rec []byte
	)
	err := row.Scan(&ch.ID, &ch.MapID, &ch.ChallengerID, &ch.ChallengerName,
		&ch.ChampionID, &ch.ChampionName, &ch.ChampionAvatar, &rec, &ch.Version, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return Challenge{}, err
	}
	ch.Champion, err = model.ParseRecord(rec)
	if err != nil {
		return Challenge{}, fmt.Errorf("decode champion of %s: %w", ch.ID, err)
	}
	return ch, nil
}
