package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dkeye/Sketch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS shapes (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	id      TEXT    NOT NULL,
	room_id TEXT    NOT NULL,
	user_id TEXT    NOT NULL,
	shape   TEXT,
	data    TEXT,
	at_ms   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS shapes_room_seq ON shapes (room_id, seq);
`

// SQLiteStore keeps history in a SQLite file. Insertion order (seq) is the
// replay order.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens the database at path and creates the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullable(msg json.RawMessage) sql.NullString {
	if msg == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(msg), Valid: true}
}

func raw(value sql.NullString) json.RawMessage {
	if !value.Valid {
		return nil
	}
	return json.RawMessage(value.String)
}

func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	if err := validate(ctx, rec.RoomID); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO shapes (id, room_id, user_id, shape, data, at_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), string(rec.RoomID), string(rec.UserID),
		nullable(rec.Shape), nullable(rec.Data), toMillis(rec.At),
	)
	if err != nil {
		return fmt.Errorf("insert shape: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, room domain.RoomID, limit int) ([]Record, error) {
	if err := validate(ctx, room); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, room_id, user_id, shape, data, at_ms FROM shapes WHERE room_id = ? ORDER BY seq DESC LIMIT ?`,
		string(room), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query shapes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id, roomID, userID string
			shape, data        sql.NullString
			atMs               int64
		)
		if err := rows.Scan(&id, &roomID, &userID, &shape, &data, &atMs); err != nil {
			return nil, fmt.Errorf("scan shape: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse shape id: %w", err)
		}
		out = append(out, Record{
			ID:     parsed,
			RoomID: domain.RoomID(roomID),
			UserID: domain.UserID(userID),
			Shape:  raw(shape),
			Data:   raw(data),
			At:     fromMillis(atMs),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
