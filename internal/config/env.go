package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvDatabasePath = "SWORDDRILL_DATABASE_PATH"
	EnvIndexPath    = "SWORDDRILL_INDEX_PATH"
	EnvHost         = "SWORDDRILL_HOST"
	EnvPort         = "SWORDDRILL_PORT"
	EnvDebug        = "SWORDDRILL_DEBUG"
	// EnvDatabaseURL is honored when EnvDatabasePath is unset.
	EnvDatabaseURL = "DATABASE_URL"
)

// ApplyEnv loads configDir/.env (if present) into the process environment
// without replacing variables that are already set, then copies any override
// variables into cfg.
func ApplyEnv(cfg *Config, configDir string) error {
	dotenv := filepath.Join(configDir, ".env")
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", dotenv, err)
	}

	if v := os.Getenv(EnvDatabasePath); v != "" {
		cfg.Storage.DatabasePath = v
	} else if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv(EnvIndexPath); v != "" {
		cfg.Storage.BleveIndexPath = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s %q", EnvPort, v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q", EnvDebug, v)
		}
		cfg.Debug = debug
	}
	return nil
}
