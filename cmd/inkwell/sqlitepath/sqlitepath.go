// Package sqlitepath finds the SQLite database used by the sqlite storage
// driver when no path is configured.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkwellhq/inkwell/pkg/dotdir"
)

// DefaultFileName is the database file created in the .inkwell/ directory.
const DefaultFileName = "inkwell.db"

// ResolveSQLitePath returns override when set, then INKWELL_SQLITE, then
// the first existing candidate database. With nothing found it falls back to
// inkwell.db inside the resolved .inkwell/ directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("INKWELL_SQLITE")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving sqlite path: %w", err)
	}
	return filepath.Join(dir, DefaultFileName), nil
}

func sqliteCandidates() []string {
	candidates := []string{
		DefaultFileName,
		filepath.Join(".inkwell", DefaultFileName),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append([]string{
			filepath.Join(home, ".inkwell", DefaultFileName),
		}, candidates...)
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{
			filepath.Join(xdgHome, "inkwell", DefaultFileName),
		}, candidates...)
	}

	return candidates
}
