package config

import "time"

// Config holds the process configuration. It is distinct from the layered
// application settings, which live in the database and the defaults file.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Settings  SettingsConfig  `mapstructure:"settings" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// SettingsConfig locates the defaults document.
type SettingsConfig struct {
	DefaultsPath string `mapstructure:"defaults_path" validate:"required"`
}

// SchedulerConfig controls the background notification job.
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"gte=1m"`
	Timezone string        `mapstructure:"timezone" validate:"omitempty,timezone"`
}
