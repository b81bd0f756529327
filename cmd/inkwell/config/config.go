// Package configcmder provides the config command for managing persistent
// inkwell configuration stored in the .inkwell/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent inkwell configuration.

Configuration is stored as config.toml in the .inkwell/ directory and provides
default values for command flags. INKWELL_* environment variables override the
file, and CLI flags override both.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.dsn,
  api.listen, client.api_target, client.token,
  generator.provider, generator.model, generator.target,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  stream.max_line_bytes, activity.workers, activity.queue_size

Subcommands:
  inkwell config set <key> <value>    Store a value and show the one it replaced
  inkwell config get <key> [key...]   Print values, secrets included
  inkwell config list                 List every key by table, secrets masked

Examples:
  inkwell config set storage.driver postgres
  inkwell config set generator.provider gemini
  inkwell config get client.api_target
  inkwell config list`

const configShortDesc string = "Manage persistent inkwell configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
