// Package ledger tracks which files have been processed, keyed by content
// hash, so unchanged files are skipped on re-runs.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"p3fes-translator/internal/textutil"
)

// Ledger maps file paths to the SHA-256 of their content at processing time.
// Safe for concurrent use by the worker pool.
type Ledger struct {
	path string
	mu   sync.Mutex
	seen map[string]string
}

// Load reads the ledger file, tolerating a missing one.
func Load(path string) (*Ledger, error) {
	l := &Ledger{path: path, seen: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	if err := json.Unmarshal(data, &l.seen); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	return l, nil
}

// Modified checks if the file at path changed since it was last recorded.
// Unknown files count as modified.
func (l *Ledger) Modified(path string) (bool, error) {
	l.mu.Lock()
	recorded, ok := l.seen[path]
	l.mu.Unlock()
	if !ok {
		return true, nil
	}

	current, err := textutil.FileHash(path)
	if err != nil {
		return false, fmt.Errorf("hash %s: %w", path, err)
	}
	return current != recorded, nil
}

// Record stores the file's current content hash.
func (l *Ledger) Record(path string) error {
	hash, err := textutil.FileHash(path)
	if err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}

	l.mu.Lock()
	l.seen[path] = hash
	l.mu.Unlock()
	return nil
}

// Save writes the ledger back to disk.
func (l *Ledger) Save() error {
	l.mu.Lock()
	data, err := json.MarshalIndent(l.seen, "", "  ")
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
