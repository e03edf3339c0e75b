package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
)

var migrationNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations on disk, typically before rebuilding.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	return ValidateFS(embedded, embeddedDir)
}

// ValidateFS checks every .sql file in dir: the name is
// <14 digit version>_<snake_name>.sql, versions are unique, and the goose
// annotations appear as Up then Down with balanced statement blocks.
func ValidateFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}
	versions := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := migrationNameRe.FindStringSubmatch(name)
		if match == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, dup := versions[match[1]]; dup {
			return fmt.Errorf("duplicate migration version %s in %q and %q", match[1], prev, name)
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}
		if err := checkAnnotations(body); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

func checkAnnotations(body []byte) error {
	var sawUp, sawDown, inBlock bool
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		directive, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "-- +goose ")
		if !ok {
			continue
		}
		switch strings.TrimSpace(directive) {
		case "Up":
			if sawUp || sawDown {
				return fmt.Errorf("unexpected \"-- +goose Up\"")
			}
			sawUp = true
		case "Down":
			if !sawUp || sawDown || inBlock {
				return fmt.Errorf("\"-- +goose Down\" must follow a closed Up section")
			}
			sawDown = true
		case "StatementBegin":
			if inBlock {
				return fmt.Errorf("nested StatementBegin")
			}
			inBlock = true
		case "StatementEnd":
			if !inBlock {
				return fmt.Errorf("StatementEnd without StatementBegin")
			}
			inBlock = false
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case !sawUp:
		return fmt.Errorf("missing \"-- +goose Up\"")
	case !sawDown:
		return fmt.Errorf("missing \"-- +goose Down\"")
	case inBlock:
		return fmt.Errorf("unterminated StatementBegin")
	}
	return nil
}
