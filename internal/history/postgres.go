package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comigor/bad-employee-go/internal/logger"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
    id SERIAL PRIMARY KEY,
    timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    username BIGINT NOT NULL,
    channel VARCHAR(50) NOT NULL,
    message TEXT NOT NULL
)`

const postgresIndex = `CREATE INDEX IF NOT EXISTS ` + TableName + `_username_ts ON ` + TableName + ` (username, timestamp)`

// PostgresStore keeps the chat log in PostgreSQL. Every operation checks a
// connection out of the pool and returns it when done, so concurrent
// handlers never share a connection.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPool connects to Postgres, retrying while the server comes up.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 10; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				logger.L.Info("database connected", "attempt", attempt)
				return pool, nil
			}
			pool.Close()
		}
		logger.L.Warn("database connect attempt failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}

// NewPostgresStore wraps an open pool. The store owns the pool from here on.
func NewPostgresStore(pool *pgxpool.Pool, timeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, timeout: timeout}
}

func (s *PostgresStore) withConn(ctx context.Context, fn func(ctx context.Context, conn *pgxpool.Conn) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(ctx, conn)
}

func (s *PostgresStore) Append(ctx context.Context, msg ChatMessage) error {
	err := s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx,
				`INSERT INTO `+TableName+` (username, channel, message) VALUES ($1, $2, $3)`,
				msg.AuthorID, clampChannel(msg.ChannelName), msg.Content)
			return err
		})
	})
	if err != nil {
		logger.L.Error("failed to save chat message", "author", msg.AuthorID, "channel", msg.ChannelName, "error", err)
		return opError("append", err)
	}
	logger.L.Debug("chat message saved", "author", msg.AuthorID, "channel", msg.ChannelName)
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, authorID int64, since time.Duration) []ChatMessage {
	query := `SELECT id, timestamp, username, channel, message FROM ` + TableName + ` WHERE username = $1`
	args := []any{authorID}
	if since > 0 {
		query += ` AND timestamp >= NOW() - make_interval(secs => $2)`
		args = append(args, since.Seconds())
	}
	query += ` ORDER BY timestamp ASC, id ASC`

	var out []ChatMessage
	err := s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ChatMessage, error) {
			var m ChatMessage
			err := row.Scan(&m.ID, &m.Timestamp, &m.AuthorID, &m.ChannelName, &m.Content)
			return m, err
		})
		return err
	})
	if err != nil {
		logger.L.Error("failed to retrieve messages", "author", authorID, "error", opError("query", err))
		return []ChatMessage{}
	}
	if out == nil {
		out = []ChatMessage{}
	}
	return out
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	err := s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, postgresSchema); err != nil {
			return err
		}
		_, err := conn.Exec(ctx, postgresIndex)
		return err
	})
	if err != nil {
		logger.L.Warn("error creating table", "table", TableName, "error", err)
		return opError("ensure schema", err)
	}
	logger.L.Info("table created successfully or already exists", "table", TableName)
	return nil
}

func (s *PostgresStore) TableExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)`, TableName).Scan(&exists)
	})
	if err != nil {
		return false, opError("table exists", err)
	}
	return exists, nil
}

func (s *PostgresStore) Purge(ctx context.Context) error {
	err := s.withConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+TableName+` CASCADE`); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, postgresSchema); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, postgresIndex)
			return err
		})
	})
	if err != nil {
		logger.L.Error("error purging table", "table", TableName, "error", err)
		return opError("purge", err)
	}
	logger.L.Info("table dropped and recreated", "table", TableName)
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
