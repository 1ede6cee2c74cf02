// Package config loads the process configuration from TRAINER_* environment
// variables, optionally seeded from dotenv files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config captures environment driven configuration values.
type Config struct {
	Storage          string `envconfig:"STORAGE" default:"sqlite"`
	SQLiteDSN        string `envconfig:"SQLITE_DSN" default:"trainer.db"`
	PostgresDSN      string `envconfig:"POSTGRES_DSN"`
	PostgresMaxConns int32  `envconfig:"POSTGRES_MAX_CONNS" default:"4"`
	RedisAddr        string `envconfig:"REDIS_ADDR"`
	RedisPrefix      string `envconfig:"REDIS_PREFIX" default:"trainer"`

	Timezone     string `envconfig:"TIMEZONE" default:"America/Sao_Paulo"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	ReminderCron string `envconfig:"REMINDER_CRON" default:"0 9 * * *"`
	RosterPath   string `envconfig:"ROSTER_PATH" default:"roster.yaml"`
	CurrencyLang string `envconfig:"CURRENCY_LANG" default:"pt-BR"`
	// MetricsFile, when set, receives a Prometheus text dump after each command.
	MetricsFile string `envconfig:"METRICS_FILE"`

	// Populated by Load from Timezone and CurrencyLang.
	Location *time.Location `ignored:"true"`
	Language language.Tag   `ignored:"true"`
}

// Load parses configuration values from the process environment after
// copying in the variables of every existing envFile. Variables already set
// in the environment win over the files. Blank TRAINER_* variables are unset
// first, so they fall back to the file value or the default. Every invalid
// value is reported, joined into one error.
func Load(envFiles ...string) (Config, error) {
	if err := unsetBlank("TRAINER_"); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("TRAINER", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	var problems []error
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	switch cfg.Storage {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			problems = append(problems, errors.New("TRAINER_POSTGRES_DSN is required when TRAINER_STORAGE=postgres"))
		}
	default:
		problems = append(problems, fmt.Errorf("TRAINER_STORAGE must be memory, sqlite or postgres, got %q", cfg.Storage))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		problems = append(problems, fmt.Errorf("TRAINER_TIMEZONE: %w", err))
	}
	cfg.Location = loc

	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Errorf("TRAINER_LOG_FORMAT must be text or json, got %q", cfg.LogFormat))
	}

	if _, err := cron.ParseStandard(cfg.ReminderCron); err != nil {
		problems = append(problems, fmt.Errorf("TRAINER_REMINDER_CRON: %w", err))
	}

	tag, err := language.Parse(cfg.CurrencyLang)
	if err != nil {
		problems = append(problems, fmt.Errorf("TRAINER_CURRENCY_LANG: %w", err))
	}
	cfg.Language = tag

	if err := errors.Join(problems...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func unsetBlank(prefix string) error {
	for _, entry := range os.Environ() {
		key, value, _ := strings.Cut(entry, "=")
		if !strings.HasPrefix(key, prefix) || strings.TrimSpace(value) != "" {
			continue
		}
		if err := os.Unsetenv(key); err != nil {
			return err
		}
	}
	return nil
}
