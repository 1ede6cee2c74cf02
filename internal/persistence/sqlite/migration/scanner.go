package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// fileNamePattern is {version}_{description}.sql with a numeric version.
var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

type fileScanner struct{}

// NewFileScanner returns the FileScanner used for embedded schema files.
func NewFileScanner() FileScanner {
	return fileScanner{}
}

// Scan reads every .sql file in dir and returns the migrations ordered by
// numeric version. Other files and subdirectories are ignored.
func (fileScanner) Scan(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fileError("", dir, "read directory", err)
	}

	var migrations []Migration
	byVersion := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		version, label, err := parseFileName(name)
		if err != nil {
			return nil, fileError("", name, "validate filename", err)
		}
		n, _ := strconv.Atoi(version)
		if other, dup := byVersion[n]; dup {
			return nil, fileError(version, name, "check duplicates",
				fmt.Errorf("%w: %s and %s", ErrDuplicateVersion, other, name))
		}
		byVersion[n] = name

		m, err := readMigration(fsys, path.Join(dir, name), version, label)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return versionNumber(a.Version) - versionNumber(b.Version)
	})
	return migrations, nil
}

// ValidateFileName reports whether filename can be scanned as a migration.
func (fileScanner) ValidateFileName(filename string) error {
	_, _, err := parseFileName(filename)
	return err
}

func parseFileName(filename string) (version, label string, err error) {
	m := fileNamePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", "", fmt.Errorf("%w: %q is not {version}_{description}.sql", ErrInvalidMigrationFile, filename)
	}
	if _, err := strconv.Atoi(m[1]); err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidVersion, m[1])
	}
	return m[1], strings.ReplaceAll(m[2], "_", " "), nil
}

func readMigration(fsys fs.FS, file, version, label string) (Migration, error) {
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return Migration{}, fileError(version, file, "read file", err)
	}
	sql := string(content)
	if len(splitStatements(sql)) == 0 {
		return Migration{}, fileError(version, file, "validate content",
			fmt.Errorf("%w: no statements", ErrInvalidMigrationFile))
	}

	description := headerDescription(sql)
	if description == "" {
		description = label
	}
	sum := sha256.Sum256(content)
	return Migration{
		Version:     version,
		Description: description,
		SQL:         sql,
		FilePath:    file,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

// headerDescription returns the text of a "-- Description:" line in the
// leading comment block.
func headerDescription(sql string) string {
	for line := range strings.Lines(sql) {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case !strings.HasPrefix(line, "--"):
			return ""
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok && strings.TrimSpace(rest) != "" {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// splitStatements splits on semicolons and drops "--" comment lines. The
// schema files never put a semicolon inside a string literal.
func splitStatements(sql string) []string {
	var statements []string
	for _, chunk := range strings.Split(sql, ";") {
		var kept []string
		for line := range strings.Lines(chunk) {
			if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "--") {
				kept = append(kept, line)
			}
		}
		if len(kept) > 0 {
			statements = append(statements, strings.Join(kept, "\n"))
		}
	}
	return statements
}

func versionNumber(version string) int {
	n, _ := strconv.Atoi(version)
	return n
}
