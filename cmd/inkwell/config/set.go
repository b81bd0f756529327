package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/pkg/cliui"
	"github.com/inkwellhq/inkwell/pkg/config"
)

const setLongDesc string = `Store a configuration value in config.toml.

The file lives in the .inkwell/ directory and is created on first use.
Enumerated keys (storage.driver, generator.provider, eventstream.provider)
reject unknown values, numeric keys reject non-numbers and broker lists are
split on commas. The previous value is printed next to the new one.

Examples:
  inkwell config set storage.driver sqlite
  inkwell config set eventstream.brokers kafka-1:9092,kafka-2:9092
  inkwell config set stream.max_line_bytes 2097152`

const setShortDesc string = "Store a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), configDir, args[0], args[1])
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runSet(w io.Writer, configDir, key, value string) error {
	if err := checkKeys(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	previous, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}
	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	// Re-read so normalised values (trimmed broker lists) show as stored.
	stored, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	writeSource(w, cfger)
	if previous == "" {
		previous = "<not set>"
	}
	fmt.Fprintf(w, "  %s %s  %s → %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.DimStyle.Render(previous),
		cliui.ValueStyle.Render(stored),
	)
	return nil
}
