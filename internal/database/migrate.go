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

// Migration is one versioned SQL script pair from migrations/.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations = mustLoadMigrations(migrationFS)

func mustLoadMigrations(fsys fs.FS) []Migration {
	loaded, err := loadMigrations(fsys)
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return loaded
}

// parseMigrationName splits "000002_single_active_indexes.up.sql" into its
// version and name. ok is false for down scripts and foreign files.
func parseMigrationName(file string) (version int, name string, ok bool, err error) {
	base, isUp := strings.CutSuffix(file, ".up.sql")
	if !isUp {
		return 0, "", false, nil
	}
	rawVersion, name, found := strings.Cut(base, "_")
	if !found || name == "" {
		return 0, "", false, fmt.Errorf("migration %s: want <version>_<name>.up.sql", file)
	}
	version, err = strconv.Atoi(rawVersion)
	if err != nil || version <= 0 {
		return 0, "", false, fmt.Errorf("migration %s: bad version %q", file, rawVersion)
	}
	return version, name, true, nil
}

// loadMigrations reads every up/down pair under migrations/ sorted by version.
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, ok, err := parseMigrationName(entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %06d used by both %s and %s", version, prev, name)
		}
		seen[version] = name

		base := strings.TrimSuffix(entry.Name(), ".up.sql")
		up, err := fs.ReadFile(fsys, path.Join("migrations", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		down, err := fs.ReadFile(fsys, path.Join("migrations", base+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", base, err)
		}
		out = append(out, Migration{Version: version, Name: name, UpScript: string(up), DownScript: string(down)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

// GetMigrationByVersion returns the migration with version, or nil.
func GetMigrationByVersion(version int) *Migration {
	for i := range migrations {
		if migrations[i].Version == version {
			return &migrations[i]
		}
	}
	return nil
}
