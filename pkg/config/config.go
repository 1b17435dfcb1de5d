// Package config provides the resolved application settings. Settings
// are loaded once at process start and passed by value into every
// constructor; nothing below this package reads the environment.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Recognized backend and file format names.
const (
	BackendMemory   = "memory"
	BackendFiles    = "files"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"

	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatXML      = "xml"
	FormatMarkdown = "md"
)

// Settings holds all application configuration.
type Settings struct {
	// Backend selects the storage implementation:
	// memory|files|sqlite|postgres|mysql.
	Backend string `envconfig:"BACKEND" default:"memory"`

	// DatabaseURL is the SQL connection string. Required for postgres
	// and mysql; optional for sqlite (falls back to a file in RootDir).
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// FileFormat is the write format of the files backend:
	// json|yaml|xml|md. Reads accept all four regardless.
	FileFormat string `envconfig:"FILE_FORMAT" default:"json"`

	// RootDir is the data directory for the files backend and the
	// sqlite fallback database.
	RootDir string `envconfig:"ROOT_DIR" default:"./data"`

	// OutputDir receives rendered documents.
	OutputDir string `envconfig:"OUTPUT_DIR" default:"./out"`

	// DefaultDueDays sets the due date when a created invoice has none.
	DefaultDueDays int `envconfig:"DEFAULT_DUE_DAYS" default:"30"`

	Server ServerSettings
	Log    LogSettings
}

// ServerSettings holds HTTP server settings.
type ServerSettings struct {
	Host            string `envconfig:"HOST" default:""`
	Port            int    `envconfig:"PORT" default:"8080"`
	ReadTimeout     int    `envconfig:"READ_TIMEOUT" default:"15"`      // seconds
	WriteTimeout    int    `envconfig:"WRITE_TIMEOUT" default:"15"`     // seconds
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`  // seconds
}

// LogSettings holds logging settings.
type LogSettings struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"console"` // console|json
}

// Load reads settings from FACTURA_-prefixed environment variables.
// Callers load .env files first if they want them.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process("factura", &s); err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks option values against the recognized sets.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendMemory, BackendFiles, BackendSQLite, BackendPostgres, BackendMySQL:
	default:
		return fmt.Errorf("unknown backend %q (want memory|files|sqlite|postgres|mysql)", s.Backend)
	}
	switch s.FileFormat {
	case FormatJSON, FormatYAML, FormatXML, FormatMarkdown:
	default:
		return fmt.Errorf("unknown file format %q (want json|yaml|xml|md)", s.FileFormat)
	}
	if (s.Backend == BackendPostgres || s.Backend == BackendMySQL) && s.DatabaseURL == "" {
		return fmt.Errorf("backend %q requires FACTURA_DATABASE_URL", s.Backend)
	}
	return nil
}

// SQLitePath returns the sqlite database location: DatabaseURL when
// set, otherwise a file inside RootDir.
func (s Settings) SQLitePath() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	return filepath.Join(s.RootDir, "factura.db")
}

// Addr returns the host:port the HTTP server binds to.
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
