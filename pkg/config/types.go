package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent inkwell configuration stored as config.toml
// in the .inkwell/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Generator   GeneratorConfig   `toml:"generator"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Stream      StreamConfig      `toml:"stream"`
	Activity    ActivityConfig    `toml:"activity"`
}

// StorageConfig selects the storage driver used by the API server.
type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres or mysql.
	Driver     string `toml:"driver,omitempty"`
	SQLitePath string `toml:"sqlite_path,omitempty"`
	DSN        string `toml:"dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (inkwell generate, inkwell admin, inkwell export).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
	Token     string `toml:"token,omitempty"`
}

// GeneratorConfig selects the AI backend behind the generation endpoints.
type GeneratorConfig struct {
	// Provider is one of template, gemini or ollama.
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EventStreamConfig configures where activity events are published.
type EventStreamConfig struct {
	// Provider is nop or kafka.
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// StreamConfig bounds the generation stream reader.
type StreamConfig struct {
	MaxLineBytes uint `toml:"max_line_bytes,omitempty"`
}

// ActivityConfig sizes the activity log worker pool.
type ActivityConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func oneOfKey(name string, allowed []string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (expected one of %s)", name, v, strings.Join(allowed, ", "))
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver": oneOfKey("storage.driver", StorageDrivers(),
		func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path": stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.dsn":         stringKey(func(c *Config) *string { return &c.Storage.DSN }),
	"api.listen":          stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target":   stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"client.token":        stringKey(func(c *Config) *string { return &c.Client.Token }),
	"generator.provider": oneOfKey("generator.provider", GeneratorProviders(),
		func(c *Config) *string { return &c.Generator.Provider }),
	"generator.model":  stringKey(func(c *Config) *string { return &c.Generator.Model }),
	"generator.target": stringKey(func(c *Config) *string { return &c.Generator.Target }),
	"eventstream.provider": oneOfKey("eventstream.provider", []string{"nop", "kafka"},
		func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = splitList(v)
			return nil
		},
	},
	"eventstream.topic": stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
	"stream.max_line_bytes": uintKey("stream.max_line_bytes",
		func(c *Config) *uint { return &c.Stream.MaxLineBytes }),
	"activity.workers": uintKey("activity.workers",
		func(c *Config) *uint { return &c.Activity.Workers }),
	"activity.queue_size": uintKey("activity.queue_size",
		func(c *Config) *uint { return &c.Activity.QueueSize }),
}

// StorageDrivers lists the accepted storage.driver values.
func StorageDrivers() []string {
	return []string{"memory", "sqlite", "postgres", "mysql"}
}

// GeneratorProviders lists the accepted generator.provider values.
func GeneratorProviders() []string {
	return []string{"template", "gemini", "ollama"}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
