package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CreateSQLMigration writes an empty timestamped goose SQL migration file.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	name = strings.ReplaceAll(strings.ToLower(name), " ", "_")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations dir: %w", err)
	}

	version := time.Now().Format("20060102150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, name))

	template := "-- +goose Up\n-- +goose StatementBegin\n-- +goose StatementEnd\n\n-- +goose Down\n-- +goose StatementBegin\n-- +goose StatementEnd\n"
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	return path, nil
}

// ValidateDir checks every SQL migration in dir carries goose Up/Down markers.
func ValidateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading migrations dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		content := string(raw)
		if !strings.Contains(content, "+goose Up") {
			return fmt.Errorf("%s is missing a +goose Up marker", entry.Name())
		}
		if !strings.Contains(content, "+goose Down") {
			return fmt.Errorf("%s is missing a +goose Down marker", entry.Name())
		}
	}
	return nil
}
