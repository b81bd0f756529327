package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/pkg/config"
)

const getLongDesc string = `Print one or more configuration values.

Values are read from config.toml in the .inkwell/ directory. Keys that are not
set print <not set>; the built-in default then applies. Secrets such as
client.token are printed in full because the key was asked for by name.

Examples:
  inkwell config get generator.provider
  inkwell config get client.api_target client.token`

const getShortDesc string = "Print configuration values"

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key> [key...]",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(cmd.OutOrStdout(), configDir, args)
		},
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runGet(w io.Writer, configDir string, keys []string) error {
	if err := checkKeys(keys...); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	writeSource(w, cfger)

	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		writeValue(w, key, value, width)
	}
	fmt.Fprintln(w)
	return nil
}
