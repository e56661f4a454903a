package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testCredential(access string) *Credential {
	return &Credential{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		TokenType:    "bearer",
		Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		Scopes:       []string{"chat:read", "chat:edit"},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	want := testCredential("X")
	require.NoError(t, store.Save("12345", want))

	got, err := store.Load("12345")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestFileStoreLoadAbsent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	got, err := store.Load("nobody")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFileStoreOverwrite(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("12345", testCredential("first")))
	require.NoError(t, store.Save("12345", testCredential("second")))

	got, err := store.Load("12345")
	require.NoError(t, err)
	require.Equal(t, "second", got.AccessToken)
}

func TestFileStoreRemoveIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("12345", testCredential("X")))
	require.NoError(t, store.Remove("12345"))

	got, err := store.Load("12345")
	require.NoError(t, err)
	require.Nil(t, got)

	// second remove is not an error
	require.NoError(t, store.Remove("12345"))
}

func TestFileStoreList(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("1", testCredential("a")))
	require.NoError(t, store.Save("2", testCredential("b")))
	require.NoError(t, store.Save("3", testCredential("c")))
	// last write wins per user
	require.NoError(t, store.Save("2", testCredential("b2")))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byID := map[string]string{}
	for _, e := range entries {
		byID[e.UserID] = e.Credential.AccessToken
	}
	require.Equal(t, map[string]string{"1": "a", "2": "b2", "3": "c"}, byID)
}

func TestFileStoreCorruptEntrySelfHeals(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "token.666.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	got, err := store.Load("666")
	require.NoError(t, err)
	require.Nil(t, got, "corrupt entry reads as absent")

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "corrupt file must be deleted on read")
}

func TestFileStoreListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token.1.json"), []byte("garbage"), 0o600))
	require.NoError(t, store.Save("2", testCredential("ok")))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "2", entries[0].UserID)
}

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	want := testCredential("X")
	require.NoError(t, store.Save("1", want))

	got, err := store.Load("1")
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.NoError(t, store.Remove("1"))
	got, err = store.Load("1")
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, store.Remove("1"))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	defer store.close()

	want := testCredential("X")
	require.NoError(t, store.Save("12345", want))
	require.NoError(t, store.Save("12345", testCredential("Y")))

	got, err := store.Load("12345")
	require.NoError(t, err)
	require.Equal(t, "Y", got.AccessToken)

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, store.Remove("12345"))
	got, err = store.Load("12345")
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, store.Remove("12345"))
}

func TestSQLiteStoreCorruptEntrySelfHeals(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	defer store.close()

	_, err = store.db.Exec(`INSERT INTO twitch_tokens(user_id,credential) VALUES('666','{broken')`)
	require.NoError(t, err)

	got, err := store.Load("666")
	require.NoError(t, err)
	require.Nil(t, got)

	entries, err := store.List()
	require.NoError(t, err)
	require.Empty(t, entries)
}
