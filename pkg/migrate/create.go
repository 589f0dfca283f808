package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
)

const versionLayout = "20060102150405"

var (
	nameSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

	// now is swapped in tests to pin migration versions.
	now = time.Now
)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- Keep statements portable: the same file runs on postgres and sqlite.
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<name>.sql and returns its
// path. The new version must sort after every migration already in dir.
func CreateSQLMigration(dir string, name string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := migrationSlug(name)
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	stamp := now().UTC().Format(versionLayout)
	var version int64
	if _, err := fmt.Sscan(stamp, &version); err != nil {
		return "", fmt.Errorf("parse version %q: %w", stamp, err)
	}
	latest, err := latestVersion(dir)
	if err != nil {
		return "", err
	}
	if version <= latest {
		return "", fmt.Errorf("version %d is not after latest migration %d", version, latest)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", stamp, slug))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, sqlTemplate, slug); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

func migrationSlug(name string) string {
	slug := nameSanitizeRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(slug, "_")
}

func latestVersion(dir string) (int64, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return 0, fmt.Errorf("list migrations in %q: %w", dir, err)
	}
	var latest int64
	for _, file := range files {
		v, err := goose.NumericComponent(filepath.Base(file))
		if err != nil {
			continue
		}
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}
