package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"
)

// EnvPrefix prefixes every environment override, e.g. FAQS_HTTP_PORT.
const EnvPrefix = "FAQS_"

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	Backup BackupConfig      `yaml:"backup"`
	Events EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Backup.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port           int      `yaml:"port" env:"HTTP_PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.AllowedOrigins, validation.Each(validation.Required)),
	)
}

// StoreConfig locates the backing file: File inside directory Dir.
type StoreConfig struct {
	Dir  string `yaml:"dir" env:"STORE_DIR"`
	File string `yaml:"file" env:"STORE_FILE"`
}

// Path returns the backing file path.
func (c *StoreConfig) Path() string {
	return filepath.Join(c.Dir, c.File)
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.File, validation.Required, validation.By(plainName)),
	)
}

// BackupConfig controls periodic snapshots of the backing file.
// An empty Schedule disables the scheduler; `backup` still works on demand.
type BackupConfig struct {
	Schedule string `yaml:"schedule" env:"BACKUP_SCHEDULE"`
	Dir      string `yaml:"dir" env:"BACKUP_DIR"`
	Keep     int    `yaml:"keep" env:"BACKUP_KEEP"`
}

// Enabled reports whether snapshots run on a schedule.
func (c *BackupConfig) Enabled() bool {
	return c.Schedule != ""
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Schedule, validation.By(cronSpec)),
		validation.Field(&c.Dir, validation.Required, validation.By(relativePath)),
		validation.Field(&c.Keep, validation.Required, validation.Min(1)),
	)
}

// EventsConfig holds change-notification settings.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle" env:"EVENTS_THROTTLE"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

func plainName(value interface{}) error {
	name, _ := value.(string)
	if name != filepath.Base(name) || name == "." || name == ".." {
		return errors.New("must be a plain file name")
	}
	return nil
}

func relativePath(value interface{}) error {
	p, _ := value.(string)
	cleaned := filepath.Clean(p)
	if filepath.IsAbs(cleaned) || cleaned == ".." || len(cleaned) > 2 && cleaned[:3] == ".."+string(filepath.Separator) {
		return errors.New("must be relative to the store directory")
	}
	return nil
}

func cronSpec(value interface{}) error {
	spec, _ := value.(string)
	if spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec: %w", err)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:           5180,
				AllowedOrigins: []string{"*"},
			},
		},
		Store: StoreConfig{
			Dir:  "./wwwroot",
			File: "faqs.json",
		},
		Backup: BackupConfig{
			Dir:  "backups",
			Keep: 10,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
