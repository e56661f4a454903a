package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

type PostgresStore struct {
	db  *sql.DB
	dsn string
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresStore{db: d, dsn: dsn}
	if err := p.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresStore) Init() error {
	// rely on migrations to create tables; just verify connectivity
	return p.db.Ping()
}

func (p *PostgresStore) Save(userID string, cred *Credential) error {
	if cred == nil {
		return fmt.Errorf("nil credential for user %s", userID)
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`INSERT INTO twitch_tokens(user_id,credential,updated_at) VALUES($1,$2,now())
		ON CONFLICT(user_id) DO UPDATE SET credential=EXCLUDED.credential, updated_at=EXCLUDED.updated_at`, userID, string(data))
	return err
}

func (p *PostgresStore) Load(userID string) (*Credential, error) {
	row := p.db.QueryRow(`SELECT credential FROM twitch_tokens WHERE user_id = $1`, userID)
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
		if rmErr := p.Remove(userID); rmErr != nil {
			return nil, rmErr
		}
		return nil, nil
	}
	return &cred, nil
}

func (p *PostgresStore) Remove(userID string) error {
	_, err := p.db.Exec(`DELETE FROM twitch_tokens WHERE user_id = $1`, userID)
	return err
}

func (p *PostgresStore) List() ([]StoreEntry, error) {
	rows, err := p.db.Query(`SELECT user_id, credential FROM twitch_tokens`)
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
		if err := p.Remove(userID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *PostgresStore) close() error { return p.db.Close() }
func (p *PostgresStore) ping() bool   { return p.db.Ping() == nil }
