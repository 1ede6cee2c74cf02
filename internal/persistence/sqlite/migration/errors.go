package migration

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMigrationFile = errors.New("invalid migration file")
	ErrMigrationNotFound    = errors.New("applied migration has no file")
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	// ErrChecksumMismatch means an applied file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
	ErrInvalidConfig    = errors.New("invalid sqlite configuration")
)

// StepError records which migration step failed. Version is empty for
// failures not tied to one migration.
type StepError struct {
	Version string
	File    string
	Step    string
	// Database is set when the statement or bookkeeping query failed, as
	// opposed to reading or validating the migration files.
	Database bool
	Err      error
}

func (e *StepError) Error() string {
	where := "migrations"
	switch {
	case e.Version != "" && e.File != "":
		where = fmt.Sprintf("migration %s (%s)", e.Version, e.File)
	case e.Version != "":
		where = "migration " + e.Version
	case e.File != "":
		where = e.File
	}
	return fmt.Sprintf("%s: %s: %v", where, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func fileError(version, file, step string, err error) error {
	return &StepError{Version: version, File: file, Step: step, Err: err}
}

func dbError(version, step string, err error) error {
	return &StepError{Version: version, Step: step, Database: true, Err: err}
}
