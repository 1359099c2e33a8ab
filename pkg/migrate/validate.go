package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// migrationFile is one goose SQL file on disk.
type migrationFile struct {
	Version string
	Name    string
}

// listDir returns the .sql files in dir ordered by version. Badly named files
// are reported in the returned error rather than skipped.
func listDir(dir string) ([]migrationFile, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []migrationFile
	var errs error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", e.Name()))
			continue
		}
		files = append(files, migrationFile{Version: m[1], Name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, errs
}

// ValidateDir checks filenames, version uniqueness and goose headers, and
// reports every problem found.
func ValidateDir(dir string) error {
	files, errs := listDir(dir)
	if files == nil && errs == nil {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	for i, f := range files {
		if i > 0 && files[i-1].Version == f.Version {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", f.Version, files[i-1].Name, f.Name))
		}
		full := filepath.Join(dir, f.Name)
		b, err := os.ReadFile(full)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read file %q: %w", full, err))
			continue
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(b), marker) {
				errs = multierr.Append(errs, fmt.Errorf("migration %q missing %q", f.Name, marker))
			}
		}
	}
	return errs
}
