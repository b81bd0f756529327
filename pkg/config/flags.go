package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on both "inkwell generate" and "inkwell admin").
type Flag struct {
	// Name is the long flag name (e.g. "api-target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "a"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.api_target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen       = "api-listen"
	FlagStorageDriver   = "storage-driver"
	FlagSQLite          = "sqlite"
	FlagDSN             = "dsn"
	FlagGeneratorProv   = "generator-provider"
	FlagGeneratorModel  = "generator-model"
	FlagGeneratorTgt    = "generator-target"
	FlagEventStreamProv = "eventstream-provider"
	FlagEventStreamTpc  = "eventstream-topic"
	FlagAPITarget       = "api-target"
	FlagToken           = "token"
	FlagMaxLineBytes    = "max-line-bytes"

	// The standalone inkwellapi binary uses "listen" as the flag name
	// but binds to the same viper key as --api-listen.
	FlagAPIListenStandalone = "api-listen-standalone"
)

// Registry is the shared FlagSet used by inkwell commands.
var Registry = FlagSet{
	FlagAPIListen:           {Name: "api-listen", Shorthand: "a", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPIListenStandalone: {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagStorageDriver:       {Name: "storage-driver", ViperKey: "storage.driver", Description: "Storage driver (memory, sqlite, postgres, mysql)"},
	FlagSQLite:              {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (storage-driver sqlite)"},
	FlagDSN:                 {Name: "dsn", ViperKey: "storage.dsn", Description: "Database DSN (storage-driver postgres or mysql)"},
	FlagGeneratorProv:       {Name: "generator-provider", ViperKey: "generator.provider", Description: "Generation backend (template, gemini, ollama)"},
	FlagGeneratorModel:      {Name: "generator-model", ViperKey: "generator.model", Description: "Model name for the generation backend"},
	FlagGeneratorTgt:        {Name: "generator-target", ViperKey: "generator.target", Description: "Generation backend URL"},
	FlagEventStreamProv:     {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Activity event publisher (nop, kafka)"},
	FlagEventStreamTpc:      {Name: "eventstream-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for activity events"},
	FlagAPITarget:           {Name: "api-target", ViperKey: "client.api_target", Description: "inkwell API server URL"},
	FlagToken:               {Name: "token", Shorthand: "t", ViperKey: "client.token", Description: "API token"},
	FlagMaxLineBytes:        {Name: "max-line-bytes", ViperKey: "stream.max_line_bytes", Description: "Largest accepted generation stream line"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
