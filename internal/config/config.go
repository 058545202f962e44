package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Board    BoardConfig    `toml:"board"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	// URL is where the TUI reaches the API.
	URL string `toml:"url"`
	// Bind is the serve-mode listen address.
	Bind string `toml:"bind"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type BoardConfig struct {
	SortBy          string `toml:"sort_by"` // none | assignee | process
	AutosaveQuietMS int    `toml:"autosave_quiet_ms"`
	DoneMaxAgeHours int    `toml:"done_max_age_hours"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // debug | info | warn | error
}

func Default(dbPath string) Config {
	return Config{
		Server: ServerConfig{
			URL:  "http://127.0.0.1:8087",
			Bind: "127.0.0.1:8087",
		},
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Board: BoardConfig{
			SortBy:          "none",
			AutosaveQuietMS: 300,
			DoneMaxAgeHours: 24,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	serverURL := strings.TrimSpace(c.Server.URL)
	if serverURL == "" {
		return errors.New("server url is required")
	}
	parsed, err := url.Parse(serverURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid server.url: %q", c.Server.URL)
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Board.SortBy)) {
	case "", "none", "assignee", "process":
	default:
		return fmt.Errorf("invalid board.sort_by: %q", c.Board.SortBy)
	}
	if c.Board.AutosaveQuietMS < 0 {
		return errors.New("board.autosave_quiet_ms must be >= 0")
	}
	if c.Board.DoneMaxAgeHours < 0 {
		return errors.New("board.done_max_age_hours must be >= 0")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
