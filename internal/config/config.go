// Package config loads client settings from defaults, the YAML config file,
// a .env file and REDIS_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// Dir is the directory name under XDG_CONFIG_HOME.
	Dir = "rediscli"
	// File is the config file name.
	File = "config.yml"
)

// Config holds everything the client needs to connect and render.
type Config struct {
	Host     string `yaml:"host,omitempty"`
	Port     string `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	NoColor     bool   `yaml:"no_color,omitempty"`
	HistoryFile string `yaml:"history_file,omitempty"`
	// PageSize is how many SAFEKEYS entries are listed before asking to go on.
	PageSize int `yaml:"page_size,omitempty"`

	Log LogConfig `yaml:"log,omitempty"`
}

// LogConfig configures the diagnostic log. An empty File discards it.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	File   string `yaml:"file,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Host:        "localhost",
		Port:        "6379",
		HistoryFile: filepath.Join(os.TempDir(), "rediscli_history"),
		PageSize:    100,
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Path returns the config file location. Respects XDG_CONFIG_HOME, defaults
// to ~/.config/rediscli/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, Dir, File)
}

// Load builds the configuration from path (Path() when empty). A missing
// file is not an error. envFiles are loaded with godotenv before the
// environment is read; without any, ./.env is tried.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = Path()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	// a missing .env is normal; variables already set take precedence
	_ = godotenv.Load(envFiles...)
	cfg.mergeEnv()

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	c.merge(fileCfg)
	return nil
}

// merge copies every field set in o over c.
func (c *Config) merge(o Config) {
	setString(&c.Host, o.Host)
	setString(&c.Port, o.Port)
	setString(&c.Username, o.Username)
	setString(&c.Password, o.Password)
	setString(&c.HistoryFile, ExpandTilde(o.HistoryFile))
	setString(&c.Log.Level, o.Log.Level)
	setString(&c.Log.File, ExpandTilde(o.Log.File))
	setString(&c.Log.Format, o.Log.Format)
	if o.NoColor {
		c.NoColor = true
	}
	if o.PageSize > 0 {
		c.PageSize = o.PageSize
	}
}

func (c *Config) mergeEnv() {
	setString(&c.Host, os.Getenv("REDIS_HOST"))
	setString(&c.Port, os.Getenv("REDIS_PORT"))
	setString(&c.Username, os.Getenv("REDIS_USERNAME"))
	setString(&c.Password, os.Getenv("REDIS_PASSWORD"))
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.NoColor = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ExpandTilde replaces a leading ~ with the user's home directory.
func ExpandTilde(path string) string {
	if len(path) < 2 || path[0] != '~' || path[1] != '/' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
