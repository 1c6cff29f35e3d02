package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// DefaultDBPath resolves the database file path in priority order:
// 1. SKULWISE_DB environment variable
// 2. $XDG_DATA_HOME/skulwise/skulwise.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("SKULWISE_DB"); p != "" {
		return p, EnsureDir(p)
	}
	p, err := xdg.DataFile(filepath.Join("skulwise", "skulwise.db"))
	if err != nil {
		return "", fmt.Errorf("resolve data path: %w", err)
	}
	return p, nil
}

// LockPath returns the lock file guarding the database at dbPath.
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
