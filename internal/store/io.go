package store

import (
	"fmt"
	"os"
	"path/filepath"

	"chatseal/internal/domain"
)

// backupFileMode keeps exported keys readable by the owner only.
const backupFileMode os.FileMode = 0o600

// WriteBackupFile atomically writes an exported key backup to path.
func WriteBackupFile(path string, b []byte) error {
	if err := writeFile(path, b, backupFileMode); err != nil {
		return fmt.Errorf("write backup %s: %w", path, err)
	}
	return nil
}

// ReadBackupFile reads a key backup from path.
func ReadBackupFile(path string) ([]byte, error) {
	b, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", path, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: backup file %s", domain.ErrNotFound, path)
	}
	return b, nil
}

// readFile reads the file at path into b; a missing file is not an error.
func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// writeFile writes bytes via a temp file, then atomically replaces the target.
func writeFile(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// Best-effort cleanup if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
