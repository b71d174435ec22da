package gamestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/park285/Cheese-chess-server/internal/chess"
	"github.com/park285/Cheese-chess-server/internal/domain"
)

// dialect carries what differs between the SQL backends.
type dialect struct {
	driver string
	schema string
	rebind func(q string) string
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

var (
	postgres = dialect{
		driver: "postgres",
		schema: `CREATE TABLE IF NOT EXISTS chess_games (
			game_id        SERIAL PRIMARY KEY,
			name           TEXT NOT NULL DEFAULT '',
			white_username TEXT,
			black_username TEXT,
			state          TEXT NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		)`,
		rebind: func(q string) string { return q },
	}
	sqlite = dialect{
		driver: "sqlite",
		schema: `CREATE TABLE IF NOT EXISTS chess_games (
			game_id        INTEGER PRIMARY KEY AUTOINCREMENT,
			name           TEXT NOT NULL DEFAULT '',
			white_username TEXT,
			black_username TEXT,
			state          TEXT NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		)`,
		rebind: func(q string) string { return placeholder.ReplaceAllString(q, "?$1") },
	}
)

// SQLStore keeps one row per game with the rules-engine state as JSON.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

// OpenPostgres connects with lib/pq and creates the table if needed.
func OpenPostgres(databaseURL string) (*SQLStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open(postgres.driver, databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	return newSQLStore(db, postgres)
}

// OpenSQLite opens a single-file database. ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open(sqlite.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer; also keeps a :memory: database on a single connection
	db.SetMaxOpenConns(1)
	return newSQLStore(db, sqlite)
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{db: db, d: d}, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) Create(ctx context.Context, name string) (*domain.GameRecord, error) {
	rec := newRecord(0, name)
	state, err := json.Marshal(rec.State)
	if err != nil {
		return nil, err
	}
	q := s.d.rebind(`INSERT INTO chess_games (name, state, updated_at) VALUES ($1, $2, $3) RETURNING game_id`)
	if err := s.db.QueryRowContext(ctx, q, rec.Name, string(state), time.Now().UTC()).Scan(&rec.GameID); err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}
	return rec, nil
}

func (s *SQLStore) Get(ctx context.Context, gameID int) (*domain.GameRecord, error) {
	q := s.d.rebind(`SELECT game_id, name, white_username, black_username, state FROM chess_games WHERE game_id = $1`)
	var (
		rec          domain.GameRecord
		white, black sql.NullString
		state        string
	)
	err := s.db.QueryRowContext(ctx, q, gameID).Scan(&rec.GameID, &rec.Name, &white, &black, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.WhiteUsername = white.String
	rec.BlackUsername = black.String
	var g chess.Game
	if err := json.Unmarshal([]byte(state), &g); err != nil {
		return nil, fmt.Errorf("decode game %d: %w", gameID, err)
	}
	rec.State = &g
	return &rec, nil
}

func (s *SQLStore) Update(ctx context.Context, rec *domain.GameRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	state, err := json.Marshal(rec.State)
	if err != nil {
		return err
	}
	q := s.d.rebind(`UPDATE chess_games SET
		name = $1, white_username = $2, black_username = $3, state = $4, updated_at = $5
		WHERE game_id = $6`)
	res, err := s.db.ExecContext(ctx, q,
		rec.Name, nullable(rec.WhiteUsername), nullable(rec.BlackUsername),
		string(state), time.Now().UTC(), rec.GameID,
	)
	if err != nil {
		return fmt.Errorf("update game %d: %w", rec.GameID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Exists(ctx context.Context, gameID int) (bool, error) {
	q := s.d.rebind(`SELECT 1 FROM chess_games WHERE game_id = $1`)
	var one int
	err := s.db.QueryRowContext(ctx, q, gameID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
