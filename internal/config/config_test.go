package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDatabasePath, EnvIndexPath, EnvHost, EnvPort, EnvDebug, EnvDatabaseURL} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
  request_timeout: 5s
storage:
  database_path: "./bible.db"
search:
  preload_abbreviations: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Server.RequestTimeout)
	}
	if want := filepath.Join(filepath.Dir(path), "bible.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if !cfg.Search.PreloadAbbreviations {
		t.Error("preload_abbreviations should be true")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
}

func TestLoad_debugTrue(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	clearEnv(t)
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadOrDefault_missingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Search.ResultLimit != 15 || cfg.Server.PoolSize != 15 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Storage.DatabasePath != "/usr/local/var/sworddrill/data/bible.db" {
		t.Errorf("unexpected default database path %q", cfg.Storage.DatabasePath)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{Search: SearchConfig{ResultLimit: 5}}
	ApplyDefaults(cfg)
	if cfg.Search.ResultLimit != 5 {
		t.Errorf("explicit result limit overwritten: %d", cfg.Search.ResultLimit)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.Server.RequestTimeout)
	}
	if cfg.Storage.MaxOpenConns != 15 {
		t.Errorf("expected 15 connections, got %d", cfg.Storage.MaxOpenConns)
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabasePath, "/tmp/env.db")
	t.Setenv(EnvPort, "9999")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.DatabasePath != "/tmp/env.db" {
		t.Errorf("database path = %q", cfg.Storage.DatabasePath)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if !cfg.Debug {
		t.Error("debug should be enabled by env")
	}
}

func TestApplyEnv_databaseURLFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabaseURL, "/tmp/legacy.db")
	cfg := &Config{}
	if err := ApplyEnv(cfg, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.DatabasePath != "/tmp/legacy.db" {
		t.Errorf("database path = %q", cfg.Storage.DatabasePath)
	}
}

func TestApplyEnv_invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPort, "eighty")
	if err := ApplyEnv(&Config{}, t.TempDir()); err == nil {
		t.Error("expected error for bad port")
	}

	clearEnv(t)
	t.Setenv(EnvDebug, "maybe")
	if err := ApplyEnv(&Config{}, t.TempDir()); err == nil {
		t.Error("expected error for bad debug flag")
	}
}

func TestApplyEnv_dotenv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SWORDDRILL_HOST=0.0.0.0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{}
	if err := ApplyEnv(cfg, dir); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want value from .env", cfg.Server.Host)
	}
}

func TestSave(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{Server: ServerConfig{Host: "example", Port: 1234, RequestTimeout: 2 * time.Second}}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Server.Host != "example" || got.Server.Port != 1234 || got.Server.RequestTimeout != 2*time.Second {
		t.Errorf("round trip lost values: %+v", got.Server)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in   string
		want string
	}{
		{"/abs/bible.db", "/abs/bible.db"},
		{"./bible.db", "/etc/sworddrill/bible.db"},
		{"~/bible.db", filepath.Join(home, "bible.db")},
		{"bible.db", "bible.db"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in, "/etc/sworddrill"); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
