// Package config provides configuration loading for programhooks.
//
// Configuration is layered: defaults, then an optional YAML file, then
// environment variables prefixed with PROGRAMHOOKS_.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Config holds the complete programhooks configuration.
type Config struct {
	Plugins   PluginsConfig   `koanf:"plugins"`
	Hooks     HooksConfig     `koanf:"hooks"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// PluginsConfig controls plugin discovery.
type PluginsConfig struct {
	Dir     string `koanf:"dir"`
	Pattern string `koanf:"pattern"`
}

// HooksConfig controls hook execution.
type HooksConfig struct {
	FailurePolicy string `koanf:"failure_policy"` // fail_fast or continue
}

// LoggingConfig holds the user-facing logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry tracing settings.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"`
	ServiceName     string   `koanf:"service_name"`
	Insecure        bool     `koanf:"insecure"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig controls the Prometheus endpoint served by long-running commands.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Plugins: PluginsConfig{
			Dir:     "plugins",
			Pattern: "*.lua",
		},
		Hooks: HooksConfig{
			FailurePolicy: "fail_fast",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			ServiceName:     "programhooks",
			Insecure:        true,
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Metrics: MetricsConfig{
			Addr: ":9102",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Plugins.Dir == "" {
		errs = append(errs, errors.New("plugins.dir is required"))
	}
	if c.Plugins.Pattern == "" {
		errs = append(errs, errors.New("plugins.pattern is required"))
	} else if _, err := filepath.Match(c.Plugins.Pattern, "plugin.lua"); err != nil {
		errs = append(errs, fmt.Errorf("plugins.pattern %q: %w", c.Plugins.Pattern, err))
	}

	switch c.Hooks.FailurePolicy {
	case "fail_fast", "continue":
	default:
		errs = append(errs, fmt.Errorf("hooks.failure_policy must be fail_fast or continue, got %q", c.Hooks.FailurePolicy))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if c.Logging.OTEL && !c.Telemetry.Enabled {
		errs = append(errs, errors.New("logging.otel requires telemetry.enabled"))
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}

	return errors.Join(errs...)
}
