// Package filepersist is the default Persister: a single file on local
// disk, written via a temp-file-plus-rename so a crash mid-write never
// corrupts the previous snapshot.
package filepersist

import (
	"fmt"
	"os"
	"path/filepath"
)

// Persister stores the cache blob at Path.
type Persister struct {
	Path string
}

// New returns a Persister writing to path. Save creates the parent
// directory with 0700 permissions if needed.
func New(path string) *Persister {
	return &Persister{Path: path}
}

// Load reads the blob at Path. A missing file is not an error; it
// reports ok=false.
func (p *Persister) Load() ([]byte, bool, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Save writes data atomically: to a sibling temp file, then renamed over
// Path. Rename is atomic on the same filesystem on every platform Go
// supports for this purpose.
func (p *Persister) Save(data []byte) error {
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("filepersist: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".licenseseat-cache-*")
	if err != nil {
		return fmt.Errorf("filepersist: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("filepersist: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("filepersist: close: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("filepersist: chmod: %w", err)
	}

	if err := os.Rename(tmpPath, p.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("filepersist: rename: %w", err)
	}

	return nil
}
