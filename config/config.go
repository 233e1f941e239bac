// Package config loads the capsched configuration file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/capsched/core/metrics"
	"github.com/kilianp07/capsched/core/model"
	"github.com/kilianp07/capsched/core/runlog"
	"github.com/kilianp07/capsched/core/scoring"
	"github.com/kilianp07/capsched/infra/logger"
	"github.com/kilianp07/capsched/infra/mqtt"
)

type Config struct {
	Scheduler model.Settings `json:"scheduler"`
	Scoring   scoring.Policy `json:"scoring"`
	Logging   logger.Config  `json:"logging"`
	RunLog    runlog.Config  `json:"runlog"`
	Metrics   metrics.Config `json:"metrics"`
	MQTT      mqtt.Config    `json:"mqtt"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every unset section.
func (c *Config) SetDefaults() {
	c.Scheduler.SetDefaults()
	if len(c.Scoring.Rules) == 0 {
		c.Scoring = scoring.DefaultPolicy()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.RunLog.SetDefaults()
	if c.MQTT.Enabled {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.RunLog.Validate(); err != nil {
		return fmt.Errorf("runlog: %w", err)
	}
	if c.MQTT.Enabled {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
