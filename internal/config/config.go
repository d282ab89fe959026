// Package config loads squadstats configuration: defaults, then an optional
// YAML file, then SQUADSTATS_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/pable/squadstats/internal/model"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore: SQUADSTATS_PIPELINE__MIN_TEAM_SIZE=2.
const EnvPrefix = "SQUADSTATS_"

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "SQUADSTATS_CONFIG"

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"squadstats.yaml",
	"squadstats.yml",
	filepath.Join(userHome(), ".squadstats", "config.yaml"),
}

// Config is the full application configuration.
type Config struct {
	Roster   []PlayerConfig `koanf:"roster" validate:"dive"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Source   SourceConfig   `koanf:"source"`
	Dataset  DatasetConfig  `koanf:"dataset"`
	Log      LogConfig      `koanf:"log"`
}

// PlayerConfig is one roster entry.
type PlayerConfig struct {
	ID       string `koanf:"id" validate:"required"`
	Platform string `koanf:"platform" validate:"required"`
}

// PipelineConfig controls reconciliation.
type PipelineConfig struct {
	// GameMode is the mode tag a match must carry to be collected ("sd").
	GameMode string `koanf:"game_mode" validate:"required"`
	// ModeBucket is the statistics sub-block extracted per match.
	ModeBucket  string `koanf:"mode_bucket" validate:"required"`
	MatchLimit  int    `koanf:"match_limit" validate:"min=1,max=1000"`
	MinTeamSize int    `koanf:"min_team_size" validate:"min=1"`
	Workers     int    `koanf:"workers" validate:"min=1,max=32"`
	FailFast    bool   `koanf:"fail_fast"`
}

// SourceConfig configures the remote provider client.
type SourceConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	ProfileURL        string        `koanf:"profile_url" validate:"required,url"`
	Title             string        `koanf:"title" validate:"required"`
	Mode              string        `koanf:"mode" validate:"required"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Credentials       string        `koanf:"credentials"`
}

// DatasetConfig locates the persisted dataset.
type DatasetConfig struct {
	Path   string `koanf:"path" validate:"required"`
	Format string `koanf:"format" validate:"oneof=csv sqlite"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			GameMode:    "sd",
			ModeBucket:  "sd",
			MatchLimit:  150,
			MinTeamSize: 3,
			Workers:     1,
		},
		Source: SourceConfig{
			BaseURL:           "https://my.callofduty.com/api/papi-client",
			ProfileURL:        "https://profile.callofduty.com",
			Title:             "mw",
			Mode:              "mp",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
			Credentials:       "creds.json",
		},
		Dataset: DatasetConfig{
			Path:   filepath.Join("data", "search_data.csv"),
			Format: "csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. An empty path searches DefaultConfigPaths;
// a missing default file is not an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := expandRosterString(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and roster platforms.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return err
	}
	_, err := c.Players()
	return err
}

// Players converts the roster to model players, rejecting unknown platforms
// and duplicate entries.
func (c *Config) Players() ([]model.Player, error) {
	out := make([]model.Player, 0, len(c.Roster))
	seen := make(map[model.Player]bool, len(c.Roster))
	for _, pc := range c.Roster {
		platform, err := model.ParsePlatform(pc.Platform)
		if err != nil {
			return nil, fmt.Errorf("roster player %q: %w", pc.ID, err)
		}
		p := model.Player{ID: strings.TrimSpace(pc.ID), Platform: platform}
		if seen[p] {
			return nil, fmt.Errorf("roster player %q listed twice", pc.ID)
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// envTransform maps SQUADSTATS_PIPELINE__MIN_TEAM_SIZE to pipeline.min_team_size.
// Variables that do not name a known section are ignored.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	return strings.ReplaceAll(key, "__", ".")
}

// expandRosterString turns SQUADSTATS_ROSTER="alice:psn,bob:acti" into a
// roster list.
func expandRosterString(k *koanf.Koanf) error {
	raw, ok := k.Get("roster").(string)
	if !ok {
		return nil
	}
	var roster []map[string]any
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, platform, found := strings.Cut(entry, ":")
		if !found {
			return fmt.Errorf("roster entry %q: want id:platform", entry)
		}
		roster = append(roster, map[string]any{"id": id, "platform": platform})
	}
	k.Delete("roster")
	return k.Set("roster", roster)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
