package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var migrationNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

type migrationFile struct {
	version string
	name    string
}

// ValidateDir checks every .sql file under dir and reports all problems at
// once. An empty dir validates the embedded set.
func ValidateDir(dir string) error {
	var fsys fs.FS = Embedded
	root := embeddedDir
	if dir != "" {
		fsys, root = os.DirFS(dir), "."
	}
	_, err := scan(fsys, root)
	return err
}

func scan(fsys fs.FS, root string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations %q: %w", root, err)
	}

	var (
		files   []migrationFile
		problem error
		owner   = map[string]string{}
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()
		parts := migrationNameRe.FindStringSubmatch(name)
		if parts == nil {
			problem = multierr.Append(problem, fmt.Errorf("%s: want <14 digit version>_<snake_name>.sql", name))
			continue
		}
		if first, dup := owner[parts[1]]; dup {
			problem = multierr.Append(problem, fmt.Errorf("%s: version %s already used by %s", name, parts[1], first))
			continue
		}
		owner[parts[1]] = name

		body, err := fs.ReadFile(fsys, joinPath(root, name))
		if err != nil {
			problem = multierr.Append(problem, fmt.Errorf("%s: %w", name, err))
			continue
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				problem = multierr.Append(problem, fmt.Errorf("%s: missing %q", name, marker))
			}
		}
		files = append(files, migrationFile{version: parts[1], name: name})
	}
	if len(owner) == 0 {
		problem = multierr.Append(problem, fmt.Errorf("no migrations in %q", root))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, problem
}

func joinPath(root, name string) string {
	if root == "." || root == "" {
		return name
	}
	return root + "/" + name
}
