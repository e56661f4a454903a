package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore persists one credential per Twitch user id.
//
// Load returns (nil, nil) when no credential exists; a stored entry that no
// longer parses is deleted on read and likewise reported as absent, so
// corruption never surfaces past this interface. Save must be durable before
// it returns. Remove is idempotent. List is a one-shot snapshot used at
// startup only.
type TokenStore interface {
	Init() error
	Save(userID string, cred *Credential) error
	Load(userID string) (*Credential, error)
	Remove(userID string) error
	List() ([]StoreEntry, error)
}

// Memory store
type MemStore struct {
	tokens map[string]*Credential
}

func NewMemoryStore() *MemStore {
	return &MemStore{tokens: map[string]*Credential{}}
}

func (m *MemStore) Init() error { return nil }

func (m *MemStore) Save(userID string, cred *Credential) error {
	if cred == nil {
		return fmt.Errorf("nil credential for user %s", userID)
	}
	c := *cred
	m.tokens[userID] = &c
	return nil
}

func (m *MemStore) Load(userID string) (*Credential, error) {
	if c, ok := m.tokens[userID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *MemStore) Remove(userID string) error {
	delete(m.tokens, userID)
	return nil
}

func (m *MemStore) List() ([]StoreEntry, error) {
	var out []StoreEntry
	for id, c := range m.tokens {
		cp := *c
		out = append(out, StoreEntry{UserID: id, Credential: &cp})
	}
	return out, nil
}

// File store: one JSON file per user under a cache directory. This is the
// default adapter.
const tokenFilePrefix = "token."
const tokenFileSuffix = ".json"

type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	s := &FileStore{dir: dir}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Init() error {
	return os.MkdirAll(s.dir, 0o700)
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, tokenFilePrefix+userID+tokenFileSuffix)
}

func (s *FileStore) Save(userID string, cred *Credential) error {
	if cred == nil {
		return fmt.Errorf("nil credential for user %s", userID)
	}
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize token for %s: %w", userID, err)
	}

	// Write-then-rename so a crash mid-write never leaves a torn file, and
	// fsync before the call returns.
	tmp, err := os.CreateTemp(s.dir, tokenFilePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(userID)); err != nil {
		return fmt.Errorf("rename token file: %w", err)
	}
	return nil
}

func (s *FileStore) Load(userID string) (*Credential, error) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token file for %s: %w", userID, err)
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		// Self-heal: an unreadable entry is deleted and treated as absent.
		log.Printf("token cache: removing corrupt entry for %s: %v", userID, err)
		if rmErr := os.Remove(s.path(userID)); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("remove corrupt token file for %s: %w", userID, rmErr)
		}
		return nil, nil
	}
	return &cred, nil
}

func (s *FileStore) Remove(userID string) error {
	if err := os.Remove(s.path(userID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file for %s: %w", userID, err)
	}
	return nil
}

func (s *FileStore) List() ([]StoreEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan cache dir: %w", err)
	}
	var out []StoreEntry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, tokenFilePrefix) || !strings.HasSuffix(name, tokenFileSuffix) {
			continue
		}
		userID := strings.TrimSuffix(strings.TrimPrefix(name, tokenFilePrefix), tokenFileSuffix)
		if userID == "" {
			continue
		}
		cred, err := s.Load(userID)
		if err != nil {
			return nil, err
		}
		if cred == nil {
			// Corrupt entry healed away during the scan.
			continue
		}
		out = append(out, StoreEntry{UserID: userID, Credential: cred})
	}
	return out, nil
}

// lifecycle helpers
func (m *MemStore) close() error { return nil }
func (m *MemStore) ping() bool   { return true }

func (s *FileStore) close() error { return nil }
func (s *FileStore) ping() bool {
	_, err := os.Stat(s.dir)
	return err == nil
}
