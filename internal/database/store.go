// Package database archives a summary of every closed room in postgres.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TylerMG2/card-games/internal/room"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_sessions (
	id         BIGSERIAL PRIMARY KEY,
	code       TEXT        NOT NULL,
	game       TEXT        NOT NULL,
	in_game    BOOLEAN     NOT NULL,
	players    INTEGER     NOT NULL,
	events     BIGINT      NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	closed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS room_sessions_code_idx ON room_sessions (code);
`

const insertSession = `
INSERT INTO room_sessions (code, game, in_game, players, events, created_at, closed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements room.Archiver.
type Store struct {
	db   execer
	pool *pgxpool.Pool
}

// Open connects to url and checks the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// Migrate creates the archive table if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) RecordRoomClosed(ctx context.Context, sum room.Summary) error {
	_, err := s.db.Exec(ctx, insertSession,
		sum.Code, sum.Game, sum.InGame, sum.Players, int64(sum.Events), sum.Created, sum.Closed)
	if err != nil {
		return fmt.Errorf("insert room session %s: %w", sum.Code, err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
