package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// CreateSQLMigration writes <dir>/<version>_<slug>.sql stamped with the current UTC time.
func CreateSQLMigration(dir, name string) (string, error) {
	return createSQLMigration(dir, name, time.Now().UTC())
}

func createSQLMigration(dir, name string, now time.Time) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("migration dir is required")
	}
	slug := migrationSlug(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create migration dir %q: %w", dir, err)
	}

	full := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", now.Format(versionLayout), slug))
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", full, err)
	}
	defer f.Close()

	if _, err := f.WriteString(migrationBody(slug)); err != nil {
		return "", fmt.Errorf("write migration %q: %w", full, err)
	}
	return full, nil
}

func migrationSlug(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(slug, "_")
}

// create_<table> names get a table skeleton; anything else gets empty sections.
func migrationBody(slug string) string {
	up, down := "-- "+slug, "-- revert "+slug
	if table, ok := strings.CutPrefix(slug, "create_"); ok && table != "" {
		if !strings.HasPrefix(table, "pos_") {
			table = "pos_" + table
		}
		up = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),\n  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),\n  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()\n);", table)
		down = fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)
	}

	var b strings.Builder
	b.WriteString("-- +goose Up\n-- +goose StatementBegin\n")
	b.WriteString(up)
	b.WriteString("\n-- +goose StatementEnd\n\n-- +goose Down\n-- +goose StatementBegin\n")
	b.WriteString(down)
	b.WriteString("\n-- +goose StatementEnd\n")
	return b.String()
}
