// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files are read from an fs.FS, usually an embed.FS compiled into
// the binary, and must be named {version}_{description}.sql
// (e.g. "001_initial_schema.sql"). Applied versions are tracked in the
// schema_migrations table together with the checksum of the file that was
// run, so an edited migration is detected on the next start.
//
// Example usage:
//
//	db, err := migration.Open(migration.DefaultSQLiteConfig("trainer.db"))
//	if err != nil {
//		return err
//	}
//	manager := migration.NewManager(migration.NewFileScanner(), migration.NewSQLiteExecutor(db), migrations, "migrations", logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
