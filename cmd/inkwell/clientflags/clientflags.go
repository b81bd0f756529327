// Package clientflags holds the flags shared by commands that talk to a
// running inkwell API server.
package clientflags

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/pkg/config"
	"github.com/inkwellhq/inkwell/pkg/genclient"
	"github.com/inkwellhq/inkwell/pkg/logger"
)

// Flags are resolved from command flags, config.toml and the environment,
// in that order of precedence.
type Flags struct {
	APITarget    string
	Token        string
	MaxLineBytes uint
	Transcript   string
	JSON         bool

	ConfigDir string
	Debug     bool
}

var keys = []string{config.FlagAPITarget, config.FlagToken, config.FlagMaxLineBytes}

// Register adds the API flags to cmd. Streaming commands also get
// --transcript.
func (f *Flags) Register(cmd *cobra.Command, streaming bool) {
	config.AddStringFlag(cmd, config.Registry, config.FlagAPITarget, &f.APITarget)
	config.AddStringFlag(cmd, config.Registry, config.FlagToken, &f.Token)
	if streaming {
		config.AddUintFlag(cmd, config.Registry, config.FlagMaxLineBytes, &f.MaxLineBytes)
		cmd.Flags().StringVar(&f.Transcript, "transcript", "", "Write the raw generation stream to this file")
	}
	cmd.Flags().BoolVar(&f.JSON, "json", false, "Print the result as JSON instead of rendered text")
}

// Load resolves the flag values. Call it from PreRunE.
func (f *Flags) Load(cmd *cobra.Command) error {
	f.ConfigDir, _ = cmd.Flags().GetString("config-dir")
	f.Debug, _ = cmd.Flags().GetBool("debug")

	v, err := config.InitViper(f.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Registry, keys)

	cfg := config.FromViper(v)
	f.APITarget = cfg.Client.APITarget
	f.Token = cfg.Client.Token
	f.MaxLineBytes = cfg.Stream.MaxLineBytes
	return nil
}

// Client builds an API client. The returned func closes the transcript
// file, if any.
func (f *Flags) Client(log *slog.Logger) (*genclient.Client, func(), error) {
	if f.Token == "" {
		return nil, nil, errors.New("no API token: pass --token or run 'inkwell config set client.token <token>'")
	}

	opts := []genclient.Option{
		genclient.WithLogger(log),
		genclient.WithMaxLineBytes(int(f.MaxLineBytes)),
	}

	done := func() {}
	if f.Transcript != "" {
		file, err := os.Create(f.Transcript)
		if err != nil {
			return nil, nil, fmt.Errorf("creating transcript: %w", err)
		}
		opts = append(opts, genclient.WithTranscript(file))
		done = func() { _ = file.Close() }
	}

	return genclient.New(f.APITarget, f.Token, opts...), done, nil
}

// Logger writes pretty logs to stderr so stdout stays clean for --json.
func (f *Flags) Logger() *slog.Logger {
	return logger.New(logger.WithDebug(f.Debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))
}
