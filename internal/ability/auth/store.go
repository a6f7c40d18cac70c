package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrUnknownUser signals that no vendor row matched the credentials.
var ErrUnknownUser = errors.New("unknown user or wrong password")

// Merchant is one vendor profile row.
type Merchant struct {
	MerchantID     string `json:"merchant_id"`
	BackgroundURL  string `json:"merchant_bg_url"`
	BotID          string `json:"merchant_bot_id"`
	MerchantUserID string `json:"merchant_user_id"`
	APIToken       string `json:"merchant_token"`
}

// Store looks up vendor credentials in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and bootstraps) the vendor database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open vendor database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS vendors (
	  user_name        TEXT PRIMARY KEY,
	  password         TEXT NOT NULL,
	  merchant_id      TEXT NOT NULL,
	  background_url   TEXT NOT NULL DEFAULT '',
	  bot_id           TEXT NOT NULL DEFAULT '',
	  merchant_user_id TEXT NOT NULL DEFAULT '',
	  api_token        TEXT NOT NULL DEFAULT ''
	);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("bootstrap vendor schema: %w", err)
	}
	return nil
}

// Lookup finds the merchant profile for a username/password pair.
func (s *Store) Lookup(ctx context.Context, username, password string) (*Merchant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT merchant_id, background_url, bot_id, merchant_user_id, api_token
		   FROM vendors WHERE user_name = ? AND password = ?`,
		username, password,
	)

	var m Merchant
	err := row.Scan(&m.MerchantID, &m.BackgroundURL, &m.BotID, &m.MerchantUserID, &m.APIToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("query vendors: %w", err)
	}
	return &m, nil
}

// Ping checks store availability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping vendor database: %w", err)
	}
	return nil
}

// Close shuts down the store.
func (s *Store) Close() error {
	return s.db.Close()
}
