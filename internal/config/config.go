package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	yaml "gopkg.in/yaml.v3"

	"github.com/park285/hotseat-chess/internal/msgcat"
)

// EnvPrefix is prepended to every variable name below.
const EnvPrefix = "HOTSEAT_"

type AppConfig struct {
	ConfigFile string `env:"CONFIG" yaml:"-"`

	ResultsPath   string `env:"RESULTS_PATH" yaml:"results_path"`
	RecentResults int    `env:"RECENT_RESULTS" yaml:"recent_results"`
	TickRate      int    `env:"TICK_RATE" yaml:"tick_rate"`

	Locale      string `env:"LOCALE" yaml:"locale"`
	MessagesDir string `env:"MESSAGES_DIR" yaml:"messages_dir"`
	Theme       string `env:"THEME" yaml:"theme"`

	StrictInvariants bool   `env:"STRICT_INVARIANTS" yaml:"strict_invariants"`
	SnapshotDir      string `env:"SNAPSHOT_DIR" yaml:"snapshot_dir"`

	RedisURL     string `env:"REDIS_URL" yaml:"redis_url"`
	RedisChannel string `env:"REDIS_CHANNEL" yaml:"redis_channel"`

	Log LogConfig `envPrefix:"LOG_" yaml:"log"`
}

type LogConfig struct {
	Level     string `env:"LEVEL" yaml:"level"`
	Format    string `env:"FORMAT" yaml:"format"`
	File      string `env:"FILE" yaml:"file"`
	ToFile    bool   `env:"TO_FILE" yaml:"to_file"`
	ToConsole bool   `env:"TO_CONSOLE" yaml:"to_console"`
	Caller    bool   `env:"CALLER" yaml:"caller"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ResultsPath:   "scores.txt",
		RecentResults: 5,
		TickRate:      30,
		Locale:        "en",
		Theme:         "basic",
		RedisChannel:  "hotseat:results",
		Log: LogConfig{
			Level:  "info",
			Format: "legacy",
			File:   "logs/hotseat.log",
			ToFile: true,
			// the terminal UI owns stdout
			ToConsole: false,
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML file named by
// HOTSEAT_CONFIG, then environment variables.
func Load() (*AppConfig, error) {
	opts := env.Options{Prefix: EnvPrefix}

	early := &AppConfig{}
	if err := env.ParseWithOptions(early, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := defaults()
	if path := strings.TrimSpace(early.ConfigFile); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.ResultsPath = strings.TrimSpace(cfg.ResultsPath)
	cfg.Locale = strings.ToLower(strings.TrimSpace(cfg.Locale))
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.SnapshotDir = strings.TrimSpace(cfg.SnapshotDir)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) validate() error {
	if c.ResultsPath == "" {
		return errors.New("HOTSEAT_RESULTS_PATH must not be empty")
	}
	if c.TickRate < 1 || c.TickRate > 240 {
		return fmt.Errorf("HOTSEAT_TICK_RATE out of range (1-240): %d", c.TickRate)
	}
	if c.RecentResults < 1 || c.RecentResults > 50 {
		return fmt.Errorf("HOTSEAT_RECENT_RESULTS out of range (1-50): %d", c.RecentResults)
	}
	if !slices.Contains(msgcat.Locales(), c.Locale) {
		return fmt.Errorf("HOTSEAT_LOCALE unknown: %q (have %v)", c.Locale, msgcat.Locales())
	}
	if c.RedisURL != "" && strings.TrimSpace(c.RedisChannel) == "" {
		return errors.New("HOTSEAT_REDIS_CHANNEL is required when HOTSEAT_REDIS_URL is set")
	}
	return nil
}
