package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/rsakamoto/mediaimport/internal/domain"
)

// GDriveConfig holds Google Drive credentials. An API key is enough for
// publicly shared folders; OAuth client credentials plus a cached token
// grant access to private ones.
type GDriveConfig struct {
	APIKey       string `mapstructure:"api_key"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenPath    string `mapstructure:"token_path"`
}

// LogConfig holds operational logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Config is the importer configuration.
type Config struct {
	// Collection is the destination media folder.
	Collection string `mapstructure:"collection"`

	// DataDir holds the import history database.
	DataDir string `mapstructure:"data_dir"`

	GDrive GDriveConfig `mapstructure:"gdrive"`
	Log    LogConfig    `mapstructure:"log"`
}

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{"."}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "mediaimport"))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "mediaimport"))
		paths = append(paths, filepath.Join(homeDir, ".mediaimport"))
	}

	return paths
}

// DefaultDataDir returns where the history database lives when not
// configured.
func DefaultDataDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "mediaimport")
	}
	return "."
}

// Load reads and parses a configuration file. If path is empty, default
// locations are searched; a missing file then yields a usable default
// config rather than an error. GOOGLE_API_KEY in the environment
// overrides the configured Drive API key.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.max_backups", 3)
	_ = v.BindEnv("gdrive.api_key", "GOOGLE_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		_, searchMiss := err.(viper.ConfigFileNotFoundError)
		if searchMiss || os.IsNotExist(err) {
			// No config anywhere is fine with defaults, but an explicitly
			// named file must exist.
			if path != "" {
				return nil, domain.ErrConfigNotFound
			}
		} else {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return &cfg, nil
}
