// Package config loads the application configuration. Precedence, lowest
// to highest: built-in defaults, the YAML config file, ACEIT_-prefixed
// environment variables, command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

const envPrefix = "ACEIT_"

// Config is the application configuration.
type Config struct {
	// DBPath is the sqlite database file holding cards, sources and
	// review state.
	DBPath string `koanf:"db_path" validate:"required"`
	// ReposDir is where git deck sources are checked out.
	ReposDir string `koanf:"repos_dir" validate:"required"`
	// DailyLimit caps how many cards a review session presents. Zero
	// means no cap.
	DailyLimit int `koanf:"daily_limit" validate:"gte=0"`
	// SmartReview orders sessions by due-ness and repetition count
	// instead of collection order.
	SmartReview bool `koanf:"smart_review"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:      "aceit.db",
		ReposDir:    "repos",
		DailyLimit:  20,
		SmartReview: true,
	}
}

// Load builds the configuration from the file at path (skipped if absent),
// the environment, and the given flag set. flags may be nil.
func Load(path string, flags *flag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return cfg, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return cfg, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
