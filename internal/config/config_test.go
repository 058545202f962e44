package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/verkstad.db")
	if cfg.Database.Path != "/tmp/verkstad.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Server.URL != "http://127.0.0.1:8087" {
		t.Fatalf("unexpected server url %q", cfg.Server.URL)
	}
	if cfg.Board.AutosaveQuietMS != 300 {
		t.Fatalf("unexpected autosave quiet period %d", cfg.Board.AutosaveQuietMS)
	}
	if cfg.Board.DoneMaxAgeHours != 24 {
		t.Fatalf("unexpected done max age %d", cfg.Board.DoneMaxAgeHours)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/verkstad.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
url = "http://boardhost:9000"

[database]
path = "/custom/verkstad.db"

[board]
sort_by = "assignee"
autosave_quiet_ms = 500

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/verkstad.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Server.URL != "http://boardhost:9000" {
		t.Fatalf("unexpected server url %q", cfg.Server.URL)
	}
	if cfg.Board.SortBy != "assignee" || cfg.Board.AutosaveQuietMS != 500 {
		t.Fatalf("unexpected board config %+v", cfg.Board)
	}
	if cfg.Board.DoneMaxAgeHours != 24 {
		t.Fatalf("unset fields should keep defaults, got %+v", cfg.Board)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "bad sort", content: "[board]\nsort_by = \"color\"\n"},
		{name: "bad level", content: "[logging]\nlevel = \"loud\"\n"},
		{name: "bad url", content: "[server]\nurl = \"not a url\"\n"},
		{name: "negative quiet period", content: "[board]\nautosave_quiet_ms = -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/verkstad.db")); err == nil {
				t.Fatalf("Load() should reject %q", tc.content)
			}
		})
	}
}
