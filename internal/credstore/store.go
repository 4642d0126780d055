// Package credstore persists the device's Wi-Fi credentials.
//
// The store is a flat string key-value space. An absent key reads as the
// empty string, so a fresh device and a forgotten device look the same.
package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/muurk/sensornode/internal/config"
)

// Keys used for the persisted credential pair.
const (
	KeySSID     = "ssid"
	KeyPassword = "password"
)

// Store is durable key-value persistence for the credential pair.
type Store interface {
	// Get returns the value for key, or "" when the key is absent.
	Get(key string) string
	// Set writes value under key.
	Set(key, value string) error
}

// CredentialSet is an SSID and password pair. An empty field means absent.
type CredentialSet struct {
	SSID     string
	Password string
}

// Complete reports whether both fields are set.
func (cs CredentialSet) Complete() bool {
	return cs.SSID != "" && cs.Password != ""
}

// Load reads the credential pair from s.
func Load(s Store) CredentialSet {
	return CredentialSet{
		SSID:     s.Get(KeySSID),
		Password: s.Get(KeyPassword),
	}
}

// Save writes both keys. The writes are independent; a failure on the second
// leaves the first in place.
func Save(s Store, cs CredentialSet) error {
	if err := s.Set(KeySSID, cs.SSID); err != nil {
		return fmt.Errorf("failed to persist ssid: %w", err)
	}
	if err := s.Set(KeyPassword, cs.Password); err != nil {
		return fmt.Errorf("failed to persist password: %w", err)
	}
	return nil
}

// Clear overwrites both keys with the empty string.
func Clear(s Store) error {
	return Save(s, CredentialSet{})
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key, or "" when absent.
func (m *MemoryStore) Get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.writes++
	return nil
}

// Writes returns the number of Set calls. Tests use it to assert that
// nothing was persisted.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// fileContents is the on-disk layout of a FileStore.
type fileContents struct {
	Values map[string]string `yaml:"values"`
}

// FileStore is a Store backed by a YAML file. The file is read once when the
// store is opened and rewritten atomically on every Set.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// OpenFileStore loads the store at path. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	var contents fileContents
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("failed to parse credential store %s: %w", path, err)
	}
	for k, v := range contents.Values {
		fs.values[k] = v
	}

	return fs, nil
}

// Path returns the file backing the store.
func (f *FileStore) Path() string {
	return f.path
}

// Get returns the value for key, or "" when absent.
func (f *FileStore) Get(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

// Set stores value under key and rewrites the file. On a write failure the
// previous value is restored.
func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.values[key]
	f.values[key] = value

	if err := f.flush(); err != nil {
		if existed {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

// Keys returns the stored keys in sorted order. "sensornode creds show"
// lists them.
func (f *FileStore) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := yaml.Marshal(fileContents{Values: f.values})
	if err != nil {
		return fmt.Errorf("failed to marshal credential store: %w", err)
	}

	header := []byte(`# sensornode credential store
#
# WARNING: values are stored unencrypted. Keep this file private (mode 0600).
# Written by the agent after a successful join; cleared on "forgot".

`)

	return config.WriteFileAtomic(f.path, append(header, data...), 0600)
}
