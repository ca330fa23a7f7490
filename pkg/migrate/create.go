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

const versionLayout = "20060102150405"

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration into dir and returns its
// path. The version is the current UTC timestamp, bumped past the newest
// existing file so two quick calls never collide.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("migrations dir is required")
	}
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	version := time.Now().UTC()
	if existing, err := scan(os.DirFS(dir), "."); err == nil && len(existing) > 0 {
		newest, perr := time.Parse(versionLayout, existing[len(existing)-1].version)
		if perr == nil && !version.After(newest) {
			version = newest.Add(time.Second)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version.Format(versionLayout), slug))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	if _, err := fmt.Fprintf(f, migrationTemplate, slug); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write migration: %w", err)
	}
	return path, f.Close()
}
