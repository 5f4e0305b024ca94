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

	"github.com/kilianp07/pubsense/core/cycle"
	"github.com/kilianp07/pubsense/core/metrics"
	"github.com/kilianp07/pubsense/infra/logger"
	"github.com/kilianp07/pubsense/infra/mqtt"
	"github.com/kilianp07/pubsense/infra/sensehat"
)

// EnvPrefix selects the environment variables read as overrides, e.g.
// PUBSENSE_MQTT__HOST sets mqtt.host.
const EnvPrefix = "PUBSENSE_"

type Config struct {
	MQTT    mqtt.Config     `json:"mqtt"`
	Sensor  sensehat.Config `json:"sensor"`
	Metrics metrics.Config  `json:"metrics"`
	Logging logger.Config   `json:"logging"`
	Cycle   cycle.Config    `json:"cycle"`
}

// Load reads the optional file at path, then the environment, then the
// overrides keyed by dotted path (e.g. "mqtt.host"). Defaults fill whatever
// is left unset. The MQTT section is not validated here since only the
// publishing commands need it.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
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
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Sensor.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.Cycle.SetDefaults()
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Sensor.Validate(); err != nil {
		return nil, err
	}
	if cfg.Cycle.IntervalSeconds < 0 {
		return nil, fmt.Errorf("interval must not be negative, got %d", cfg.Cycle.IntervalSeconds)
	}
	return &cfg, nil
}

// Validate checks every section, including the broker settings.
func (c Config) Validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.Sensor.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
