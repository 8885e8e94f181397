package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Migration is one versioned SQL change with its rollback.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

// LoadMigrations reads every NNNNNN_name.up.sql / .down.sql pair under dir in
// fsys, ordered by version. A missing down script or a duplicate version is an error.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		rawVersion, label, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s must be named <version>_<name>.up.sql", name)
		}
		version, err := strconv.Atoi(rawVersion)
		if err != nil {
			return nil, fmt.Errorf("migration %s has a non-numeric version", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %d used by both %s and %s", version, prev, name)
		}
		seen[version] = name

		up, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read up migration %s: %w", name, err)
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, base+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("failed to read down migration for %s: %w", name, err)
		}

		out = append(out, Migration{
			Version:    version,
			Name:       label,
			UpScript:   string(up),
			DownScript: string(down),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// GetMigrations returns the migrations embedded in the binary.
func GetMigrations() ([]Migration, error) {
	return LoadMigrations(migrationFS, "migrations")
}

// GetMigrationByVersion looks a migration up by version.
func GetMigrationByVersion(all []Migration, version int) (Migration, bool) {
	for _, m := range all {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}
