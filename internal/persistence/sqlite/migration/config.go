package migration

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteConfig describes how the trainer database file is opened. Foreign
// keys are always enforced.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:".
	Path         string
	BusyTimeout  time.Duration
	JournalMode  string
	Synchronous  string
	MaxOpenConns int
}

var (
	journalModes = []string{"", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF"}
	syncModes    = []string{"", "OFF", "NORMAL", "FULL", "EXTRA"}
)

// DefaultSQLiteConfig is the configuration the CLI runs with: WAL so a
// watching reminder process and a one-off command can share the file.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:         path,
		BusyTimeout:  10 * time.Second,
		JournalMode:  "WAL",
		Synchronous:  "NORMAL",
		MaxOpenConns: 4,
	}
}

// ScratchSQLiteConfig trades durability for speed in throwaway databases.
func ScratchSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:         path,
		BusyTimeout:  time.Second,
		JournalMode:  "MEMORY",
		Synchronous:  "OFF",
		MaxOpenConns: 1,
	}
}

// Validate checks the configuration.
func (c SQLiteConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.Path) == "":
		return fmt.Errorf("%w: empty database path", ErrInvalidConfig)
	case c.BusyTimeout < 0:
		return fmt.Errorf("%w: negative busy timeout", ErrInvalidConfig)
	case !slices.Contains(journalModes, strings.ToUpper(c.JournalMode)):
		return fmt.Errorf("%w: journal mode %q", ErrInvalidConfig, c.JournalMode)
	case !slices.Contains(syncModes, strings.ToUpper(c.Synchronous)):
		return fmt.Errorf("%w: synchronous mode %q", ErrInvalidConfig, c.Synchronous)
	case c.MaxOpenConns < 0:
		return fmt.Errorf("%w: negative connection limit", ErrInvalidConfig)
	}
	return nil
}

// dsn renders the pragmas as _pragma parameters so every pooled connection
// gets them, not only the first.
func (c SQLiteConfig) dsn() string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	if c.BusyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	}
	if c.JournalMode != "" && !c.inMemory() {
		params.Add("_pragma", "journal_mode("+strings.ToUpper(c.JournalMode)+")")
	}
	if c.Synchronous != "" {
		params.Add("_pragma", "synchronous("+strings.ToUpper(c.Synchronous)+")")
	}
	return "file:" + c.Path + "?" + params.Encode()
}

func (c SQLiteConfig) inMemory() bool {
	return c.Path == ":memory:"
}

// Open validates config, creates the parent directory of the file and
// returns a pinged handle.
func Open(config SQLiteConfig) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !config.inMemory() {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config.Path, err)
	}
	switch {
	case config.inMemory():
		// every connection to :memory: is its own database
		db.SetMaxOpenConns(1)
	case config.MaxOpenConns > 0:
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", config.Path, err)
	}
	return db, nil
}
