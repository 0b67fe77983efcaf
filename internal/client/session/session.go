// Package session holds the credential pair for the authenticated user.
// It is the only mutable state shared across the client.
package session

import (
	"os"
	"strings"
)

// Store is the narrow interface the rest of the client depends on, so
// tests can swap in an in-memory pair.
type Store interface {
	// Set stores both credentials. A call with either value empty is a
	// no-op: the pair is written atomically or not at all.
	Set(access, refresh string) error
	AccessToken() string
	RefreshToken() string
	Clear() error
}

// Authenticated reports whether the store currently holds a credential.
func Authenticated(s Store) bool {
	return s.AccessToken() != ""
}

const (
	accessFileName  = ".reportagua_access_token"
	refreshFileName = ".reportagua_refresh_token"
)

// FileStore persists the pair to two files under the user home so a
// session survives between invocations.
type FileStore struct{}

func NewFileStore() *FileStore { return &FileStore{} }

func (f *FileStore) accessPath() string {
	home, _ := os.UserHomeDir()
	return home + string(os.PathSeparator) + accessFileName
}

func (f *FileStore) refreshPath() string {
	home, _ := os.UserHomeDir()
	return home + string(os.PathSeparator) + refreshFileName
}

func (f *FileStore) Set(access, refresh string) error {
	if access == "" || refresh == "" {
		return nil
	}
	if err := os.WriteFile(f.accessPath(), []byte(access), 0600); err != nil {
		return err
	}
	return os.WriteFile(f.refreshPath(), []byte(refresh), 0600)
}

func (f *FileStore) AccessToken() string  { return readToken(f.accessPath()) }
func (f *FileStore) RefreshToken() string { return readToken(f.refreshPath()) }

func (f *FileStore) Clear() error {
	errA := os.Remove(f.accessPath())
	errB := os.Remove(f.refreshPath())
	if errA != nil && !os.IsNotExist(errA) {
		return errA
	}
	if errB != nil && !os.IsNotExist(errB) {
		return errB
	}
	return nil
}

func readToken(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// MemStore keeps the pair in memory; used in tests.
type MemStore struct {
	access  string
	refresh string
}

func (m *MemStore) Set(access, refresh string) error {
	if access == "" || refresh == "" {
		return nil
	}
	m.access, m.refresh = access, refresh
	return nil
}

func (m *MemStore) AccessToken() string  { return m.access }
func (m *MemStore) RefreshToken() string { return m.refresh }

func (m *MemStore) Clear() error {
	m.access, m.refresh = "", ""
	return nil
}
