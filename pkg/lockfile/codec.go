// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidLock is the sentinel all lock-content violations wrap. A lock
// that triggers it is stale or hand-edited; regenerating it is the fix.
var ErrInvalidLock = errors.New("invalid lock")

// Parse reads and parses a lock from the given path.
func Parse(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock at %s: %w", path, err)
	}

	return ParseBytes(data, path)
}

// ParseBytes parses lock content from bytes.
func ParseBytes(data []byte, path string) (*Lock, error) {
	var lock Lock
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("%w at %s: %w", ErrInvalidLock, path, err)
	}

	for _, b := range lock.Bases {
		if err := b.Identifier.validate(); err != nil {
			return nil, fmt.Errorf("%w at %s: base %q: %w", ErrInvalidLock, path, Ref{Name: b.Name, Version: b.Version}, err)
		}
	}

	return &lock, nil
}

// Encode renders the lock as TOML. Map-valued fields marshal with sorted
// keys, so encoding is deterministic.
func (l *Lock) Encode() ([]byte, error) {
	data, err := toml.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encoding lock: %w", err)
	}
	return data, nil
}

// Write persists the lock at path and the target list next to it (the
// lock path with its extension replaced by ".txt"). Both files are
// written to temp files and renamed, so a failing pass never leaves a
// half-written artifact behind.
func (l *Lock) Write(path string) error {
	data, err := l.Encode()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing lock: %w", err)
	}
	if err := writeFileAtomic(TargetsPath(path), []byte(l.TargetList())); err != nil {
		return fmt.Errorf("writing target list: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".imagewright-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// No-ops once the rename has happened.
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
