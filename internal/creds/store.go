// Package creds stores account secrets (OAuth refresh tokens, offline
// passthrough markers) outside config.json, keyed the same way the upstream
// keyring integration does: service "QuantumLauncher", account
// "<identifier>#<provider>". A real OS keyring binding (Secret Service,
// Keychain, Credential Manager) is out of scope for a headless core with no
// access to the examples' keyring bindings; see DESIGN.md for why this
// stays on the standard library instead. The Store interface is the seam a
// future keyring-backed implementation would satisfy without touching
// callers.
package creds

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/quantumlauncher/qlcore/internal/paths"
	"github.com/quantumlauncher/qlcore/internal/qerrors"
)

const serviceName = "QuantumLauncher"

// Store is the credential-backend seam.
type Store interface {
	Get(identifier, provider string) (string, error)
	Set(identifier, provider, secret string) error
	Delete(identifier, provider string) error
}

// FileStore persists secrets in a single 0600 JSON file under the launcher
// root, never inside config.json, so a config backup/share doesn't leak
// tokens.
type FileStore struct {
	root *paths.Root
}

func NewFileStore(root *paths.Root) *FileStore { return &FileStore{root: root} }

func (s *FileStore) path() string { return s.root.Join("credentials.json") }

func key(identifier, provider string) string { return identifier + "#" + provider }

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, &qerrors.KeyringError{Inner: &qerrors.Io{Path: s.path(), Cause: err}}
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &qerrors.KeyringError{Inner: &qerrors.Json{Text: string(data), Cause: err}}
	}
	return m, nil
}

func (s *FileStore) save(m map[string]string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return &qerrors.KeyringError{Inner: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path()), 0o700); err != nil {
		return &qerrors.KeyringError{Inner: &qerrors.Io{Path: s.path(), Cause: err}}
	}
	if err := os.WriteFile(s.path(), data, 0o600); err != nil {
		return &qerrors.KeyringError{Inner: &qerrors.Io{Path: s.path(), Cause: err}}
	}
	return nil
}

func (s *FileStore) Get(identifier, provider string) (string, error) {
	m, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := m[key(identifier, provider)]
	if !ok {
		return "", &qerrors.KeyringError{Inner: os.ErrNotExist, Guidance: "no credential stored for this account"}
	}
	return v, nil
}

func (s *FileStore) Set(identifier, provider, secret string) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	m[key(identifier, provider)] = secret
	return s.save(m)
}

func (s *FileStore) Delete(identifier, provider string) error {
	m, err := s.load()
	if err != nil {
		return err
	}
	delete(m, key(identifier, provider))
	return s.save(m)
}

var _ Store = (*FileStore)(nil)
