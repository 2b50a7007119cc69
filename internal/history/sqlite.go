package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/bad-employee-go/internal/logger"
)

// Timestamps are unix nanoseconds so window comparisons stay exact.
const sqliteSchema = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp INTEGER NOT NULL,
    username INTEGER NOT NULL,
    channel VARCHAR(50) NOT NULL,
    message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ` + TableName + `_username_ts ON ` + TableName + ` (username, timestamp);`

// SQLiteStore keeps the chat log in a local SQLite file.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
	now     func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
// The schema is not created; call EnsureSchema.
func OpenSQLite(path string, timeout time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLiteStore{db: db, timeout: timeout, now: time.Now}, nil
}

// sqliteDSN builds a file: URI; the path is escaped so '?', '#' and '%' in
// file names are not read as URI syntax.
func sqliteDSN(path string) string {
	u := url.URL{Path: path}
	return "file:" + u.EscapedPath() + "?_pragma=busy_timeout(10000)"
}

// withConn runs fn on a connection held only for this operation.
func (s *SQLiteStore) withConn(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, conn)
}

func (s *SQLiteStore) Append(ctx context.Context, msg ChatMessage) error {
	err := s.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		_, err = tx.ExecContext(ctx,
			`INSERT INTO `+TableName+` (timestamp, username, channel, message) VALUES (?, ?, ?, ?);`,
			s.now().UnixNano(), msg.AuthorID, clampChannel(msg.ChannelName), msg.Content)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		logger.L.Error("failed to save chat message", "author", msg.AuthorID, "channel", msg.ChannelName, "error", err)
		return opError("append", err)
	}
	logger.L.Debug("chat message saved", "author", msg.AuthorID, "channel", msg.ChannelName)
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, authorID int64, since time.Duration) []ChatMessage {
	query := `SELECT id, timestamp, username, channel, message FROM ` + TableName + ` WHERE username = ?`
	args := []any{authorID}
	if since > 0 {
		query += ` AND timestamp >= ?`
		args = append(args, s.now().Add(-since).UnixNano())
	}
	query += ` ORDER BY timestamp ASC, id ASC;`

	var out []ChatMessage
	err := s.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				m  ChatMessage
				ts int64
			)
			if err := rows.Scan(&m.ID, &ts, &m.AuthorID, &m.ChannelName, &m.Content); err != nil {
				return err
			}
			m.Timestamp = time.Unix(0, ts).UTC()
			out = append(out, m)
		}
		return rows.Err()
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

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	err := s.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, sqliteSchema)
		return err
	})
	if err != nil {
		logger.L.Warn("error creating table", "table", TableName, "error", err)
		return opError("ensure schema", err)
	}
	logger.L.Info("table created successfully or already exists", "table", TableName)
	return nil
}

func (s *SQLiteStore) TableExists(ctx context.Context) (bool, error) {
	var n int
	err := s.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?;`, TableName).Scan(&n)
	})
	if err != nil {
		return false, opError("table exists", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Purge(ctx context.Context) error {
	err := s.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `DROP TABLE IF EXISTS `+TableName+`;`); err != nil {
			return err
		}
		_, err := conn.ExecContext(ctx, sqliteSchema)
		return err
	})
	if err != nil {
		logger.L.Error("error purging table", "table", TableName, "error", err)
		return opError("purge", err)
	}
	logger.L.Info("table dropped and recreated", "table", TableName)
	return nil
}

func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		logger.L.Warn("sqlite close failed", "error", err)
	}
}
