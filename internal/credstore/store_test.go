package credstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCredentialSetComplete(t *testing.T) {
	tests := []struct {
		name string
		cs   CredentialSet
		want bool
	}{
		{"both set", CredentialSet{SSID: "Home", Password: "secret123"}, true},
		{"missing password", CredentialSet{SSID: "Home"}, false},
		{"missing ssid", CredentialSet{Password: "secret123"}, false},
		{"empty", CredentialSet{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cs.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryStoreAbsentKeyIsEmpty(t *testing.T) {
	s := NewMemoryStore()

	if got := s.Get(KeySSID); got != "" {
		t.Errorf("Get(ssid) on empty store = %q, want empty", got)
	}
	if cs := Load(s); cs.Complete() {
		t.Errorf("Load() on empty store = %+v, want incomplete", cs)
	}
}

func TestSaveLoadClear(t *testing.T) {
	s := NewMemoryStore()

	want := CredentialSet{SSID: "Home", Password: "secret123"}
	if err := Save(s, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := Load(s); got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := Clear(s); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := Load(s); got != (CredentialSet{}) {
		t.Errorf("Load() after Clear() = %+v, want empty", got)
	}
	if s.Writes() != 4 {
		t.Errorf("Writes() = %d, want 4 (two keys, twice)", s.Writes())
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	fs, err := OpenFileStore(filepath.Join(t.TempDir(), "credentials.yaml"))
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	if got := fs.Get(KeySSID); got != "" {
		t.Errorf("Get(ssid) = %q, want empty", got)
	}
}

func TestFileStorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "credentials.yaml")

	fs, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	if err := Save(fs, CredentialSet{SSID: "Home", Password: "secret123"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(raw), "unencrypted") {
		t.Error("store file should carry the unencrypted warning header")
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() reopen error = %v", err)
	}
	got := Load(reopened)
	if got.SSID != "Home" || got.Password != "secret123" {
		t.Errorf("Load() after reopen = %+v", got)
	}

	keys := reopened.Keys()
	if len(keys) != 2 || keys[0] != KeyPassword || keys[1] != KeySSID {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	if err := os.WriteFile(path, []byte("values: [not, a, map"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := OpenFileStore(path); err == nil {
		t.Error("OpenFileStore() should fail on a corrupt file")
	}
}
