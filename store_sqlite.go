package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// SQLite store: single-artifact alternative to the file cache.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: d, path: path}
	if err := s.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS twitch_tokens (user_id TEXT PRIMARY KEY, credential TEXT NOT NULL, updated_at TEXT);`)
	return err
}

func (s *SQLiteStore) Save(userID string, cred *Credential) error {
	if cred == nil {
		return fmt.Errorf("nil credential for user %s", userID)
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO twitch_tokens(user_id,credential,updated_at) VALUES(?,?,datetime('now'))
		ON CONFLICT(user_id) DO UPDATE SET credential=excluded.credential, updated_at=excluded.updated_at`, userID, string(data))
	return err
}

func (s *SQLiteStore) Load(userID string) (*Credential, error) {
	row := s.db.QueryRow(`SELECT credential FROM twitch_tokens WHERE user_id = ?`, userID)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		log.Printf("token cache: removing corrupt entry for %s: %v", userID, err)
		if rmErr := s.Remove(userID); rmErr != nil {
			return nil, rmErr
		}
		return nil, nil
	}
	return &cred, nil
}

func (s *SQLiteStore) Remove(userID string) error {
	_, err := s.db.Exec(`DELETE FROM twitch_tokens WHERE user_id = ?`, userID)
	return err
}

func (s *SQLiteStore) List() ([]StoreEntry, error) {
	rows, err := s.db.Query(`SELECT user_id, credential FROM twitch_tokens`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoreEntry
	var corrupt []string
	for rows.Next() {
		var userID, raw string
		if err := rows.Scan(&userID, &raw); err != nil {
			return nil, err
		}
		var cred Credential
		if err := json.Unmarshal([]byte(raw), &cred); err != nil {
			log.Printf("token cache: skipping corrupt entry for %s: %v", userID, err)
			corrupt = append(corrupt, userID)
			continue
		}
		out = append(out, StoreEntry{UserID: userID, Credential: &cred})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, userID := range corrupt {
		if err := s.Remove(userID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) close() error { return s.db.Close() }
func (s *SQLiteStore) ping() bool   { return s.db.Ping() == nil }
