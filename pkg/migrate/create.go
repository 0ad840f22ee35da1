package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeNameRe = regexp.MustCompile(`[^a-z0-9]+`)

const sqlSkeleton = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// SlugName lowercases name and collapses anything outside [a-z0-9] into
// single underscores.
func SlugName(name string) string {
	return strings.Trim(unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<slug>.sql stamped with now
// in UTC and refuses to overwrite an existing file.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := SlugName(name)
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	path := filepath.Join(dir, now.UTC().Format("20060102150405")+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("migration already exists: %s", path)
		}
		return "", fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, sqlSkeleton, slug); err != nil {
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, nil
}
