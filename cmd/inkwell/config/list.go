package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/pkg/cliui"
	"github.com/inkwellhq/inkwell/pkg/config"
)

const listLongDesc string = `List every configuration key grouped by TOML table.

Unset keys print <not set>. client.token is masked; use
"inkwell config get client.token" to print it.

Examples:
  inkwell config list`

const listShortDesc string = "List configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(w io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	writeSource(w, cfger)

	keys := config.ValidConfigKeys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	current := ""
	for _, key := range keys {
		if s := section(key); s != current {
			if current != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "  %s\n", cliui.StepStyle.Render("["+s+"]"))
			current = s
		}

		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		if secretKeys[key] && value != "" {
			value = maskSecret(value)
		}
		writeValue(w, key, value, width)
	}
	fmt.Fprintln(w)
	return nil
}
