package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/liveforge/dmcap/internal/cryptoenv"
)

// Store persists an arbitrary JSON-serializable document behind a
// cryptoenv envelope keyed by an operator-supplied password. Both the
// backend's token roster and the data-center's capture set use the same
// Store shape with different documents and file names, matching how the
// source wraps both in the identical generic config-file type.
type Store struct {
	path     string
	password string
}

// NewStore prepares a Store at path. The containing directory is created
// with 0o700 permissions if missing; no file is read or written yet.
func NewStore(path, password string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("catalog: create directory %s: %w", dir, err)
	}
	return &Store{path: path, password: password}, nil
}

// loadRaw reads and decrypts the store's file, returning nil if the file
// doesn't exist yet (first boot). A decrypt failure is always returned —
// callers must treat it as fatal.
func (s *Store) loadRaw() ([]byte, error) {
	ciphertext, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", s.path, err)
	}
	return cryptoenv.Open(s.password, ciphertext)
}

// saveRaw encrypts plaintext and atomically replaces the store's file,
// fixing permissions to 0o600 regardless of the umask.
func (s *Store) saveRaw(plaintext []byte) error {
	envelope, err := cryptoenv.Seal(s.password, plaintext)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, envelope, 0o600); err != nil {
		return fmt.Errorf("catalog: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("catalog: rename into place: %w", err)
	}
	return nil
}

// Load decodes doc (a *document or *captureDocument) from the store,
// leaving doc at its zero value if no file exists yet.
func (s *Store) Load() (document, error) {
	raw, err := s.loadRaw()
	if err != nil {
		return document{}, err
	}
	if raw == nil {
		return newDocument(), nil
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{}, fmt.Errorf("catalog: decode roster: %w", err)
	}
	if doc.StreamerTokens == nil {
		doc.StreamerTokens = make(map[string]uint64)
	}
	if doc.AdminTokens == nil {
		doc.AdminTokens = make(map[string]bool)
	}
	if doc.Capture == nil {
		doc.Capture = make(map[uint64]bool)
	}
	return doc, nil
}

// Save encodes and persists doc.
func (s *Store) Save(doc document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("catalog: encode roster: %w", err)
	}
	return s.saveRaw(raw)
}
