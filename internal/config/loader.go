package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables that steer loading.
const (
	EnvPrefix     = "ARRYN_"
	EnvConfigPath = "ARRYN_CONFIG"
	dotEnvFile    = ".env"
)

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New)
//  2. .env in the working directory, without overriding the environment
//  3. YAML file named by ARRYN_CONFIG
//  4. environment variables prefixed ARRYN_
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, dotEnvFile, err)
	}
	return LoadFile(ctx, os.Getenv(EnvConfigPath))
}

// LoadFile layers defaults, the YAML file at path (skipped when empty) and
// ARRYN_ environment variables, then validates the result.
func LoadFile(_ context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ARRYN_INGEST_WORKERS -> ingest_workers; keys are flat so underscores stay.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.DataSource = strings.ToLower(strings.TrimSpace(cfg.DataSource))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
