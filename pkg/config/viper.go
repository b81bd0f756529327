package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/inkwellhq/inkwell/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "INKWELL"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the INKWELL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (INKWELL_API_LISTEN, INKWELL_STORAGE_DRIVER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper resolves every key through v's precedence chain into a Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Driver:     v.GetString("storage.driver"),
			SQLitePath: v.GetString("storage.sqlite_path"),
			DSN:        v.GetString("storage.dsn"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
			Token:     v.GetString("client.token"),
		},
		Generator: GeneratorConfig{
			Provider: v.GetString("generator.provider"),
			Model:    v.GetString("generator.model"),
			Target:   v.GetString("generator.target"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  brokers(v),
			Topic:    v.GetString("eventstream.topic"),
		},
		Stream: StreamConfig{
			MaxLineBytes: v.GetUint("stream.max_line_bytes"),
		},
		Activity: ActivityConfig{
			Workers:   v.GetUint("activity.workers"),
			QueueSize: v.GetUint("activity.queue_size"),
		},
	}
}

// brokers accepts both a TOML array and a comma separated env value.
func brokers(v *viper.Viper) []string {
	var out []string
	for _, b := range v.GetStringSlice("eventstream.brokers") {
		out = append(out, splitList(b)...)
	}
	return out
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.dsn", d.Storage.DSN)

	v.SetDefault("api.listen", d.API.Listen)

	v.SetDefault("client.api_target", d.Client.APITarget)
	v.SetDefault("client.token", d.Client.Token)

	v.SetDefault("generator.provider", d.Generator.Provider)
	v.SetDefault("generator.model", d.Generator.Model)
	v.SetDefault("generator.target", d.Generator.Target)

	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	v.SetDefault("stream.max_line_bytes", d.Stream.MaxLineBytes)

	v.SetDefault("activity.workers", d.Activity.Workers)
	v.SetDefault("activity.queue_size", d.Activity.QueueSize)
}
