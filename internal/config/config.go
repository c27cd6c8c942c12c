// Package config loads satset settings from an optional satset.yaml file
// and SATSET_* environment variables.
//
// Command-line flags are applied on top by the cli package; this package
// only knows about files and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/satset/internal/engine"
)

// FileName is the config file name looked up (without extension).
const FileName = "satset"

// EnvPrefix prefixes every environment override, e.g. SATSET_FORMAT.
const EnvPrefix = "SATSET"

// Keys.
const (
	KeyFormat          = "format"
	KeyVerbose         = "verbose"
	KeyHistoryCapacity = "history_capacity"
	KeyDuplicatePolicy = "duplicate_policy"
	KeyDatabase        = "database"
)

// Config holds the resolved settings.
type Config struct {
	Format          string `mapstructure:"format"`
	Verbose         bool   `mapstructure:"verbose"`
	HistoryCapacity int    `mapstructure:"history_capacity"`
	DuplicatePolicy string `mapstructure:"duplicate_policy"`
	Database        string `mapstructure:"database"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Format:          "text",
		HistoryCapacity: 8,
		DuplicatePolicy: "overwrite",
	}
}

// Policy returns the parsed duplicate policy.
func (c Config) Policy() engine.DuplicatePolicy {
	p, _ := engine.ParseDuplicatePolicy(c.DuplicatePolicy)
	return p
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%s: invalid format %q: must be text or json", KeyFormat, c.Format)
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("%s: must be at least 1, got %d", KeyHistoryCapacity, c.HistoryCapacity)
	}
	if _, err := engine.ParseDuplicatePolicy(c.DuplicatePolicy); err != nil {
		return fmt.Errorf("%s: %w", KeyDuplicatePolicy, err)
	}
	return nil
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file path. Missing explicit files are
	// an error.
	File string

	// SearchPaths are directories searched for satset.yaml when File is
	// empty. A missing file there is not an error.
	SearchPaths []string

	// Env looks up environment variables. Defaults to os.Getenv via
	// viper's AutomaticEnv when nil.
	Env func(key string) (string, bool)
}

// Load resolves the configuration.
// Precedence, lowest first: defaults, config file, environment.
func Load(opts Options) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	def := Default()
	v.SetDefault(KeyFormat, def.Format)
	v.SetDefault(KeyVerbose, def.Verbose)
	v.SetDefault(KeyHistoryCapacity, def.HistoryCapacity)
	v.SetDefault(KeyDuplicatePolicy, def.DuplicatePolicy)
	v.SetDefault(KeyDatabase, def.Database)

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", opts.File, err)
		}
	} else if len(opts.SearchPaths) > 0 {
		v.SetConfigName(FileName)
		for _, p := range opts.SearchPaths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if opts.Env != nil {
		for _, key := range []string{KeyFormat, KeyVerbose, KeyHistoryCapacity, KeyDuplicatePolicy, KeyDatabase} {
			if val, ok := opts.Env(EnvPrefix + "_" + strings.ToUpper(key)); ok {
				v.Set(key, val)
			}
		}
	} else {
		v.SetEnvPrefix(EnvPrefix)
		v.AutomaticEnv()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
