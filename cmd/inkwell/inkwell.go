// Package inkwellcmder
package inkwellcmder

import (
	"github.com/spf13/cobra"

	admincmder "github.com/inkwellhq/inkwell/cmd/inkwell/admin"
	authcmder "github.com/inkwellhq/inkwell/cmd/inkwell/auth"
	configcmder "github.com/inkwellhq/inkwell/cmd/inkwell/config"
	dumpcmder "github.com/inkwellhq/inkwell/cmd/inkwell/dump"
	generatecmder "github.com/inkwellhq/inkwell/cmd/inkwell/generate"
	servecmder "github.com/inkwellhq/inkwell/cmd/inkwell/serve"
	versioncmder "github.com/inkwellhq/inkwell/cmd/version"
)

const inkwellLongDesc string = `Inkwell writes marketing copy from blueprints.

Run the server and generate copy using:
  inkwell serve                  Run the API server
  inkwell generate blueprint     Generate blueprint slots from source copy
  inkwell generate project <id>  Fill a project's fields and write its copy
  inkwell admin users list       Manage users`

const inkwellShortDesc string = "Inkwell - Marketing Copy Generation"

func NewInkwellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "inkwell",
		Short:        inkwellShortDesc,
		Long:         inkwellLongDesc,
		SilenceUsage:  true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the config directory (default .inkwell or ~/.inkwell)")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(generatecmder.NewGenerateCmd())
	cmd.AddCommand(admincmder.NewAdminCmd())
	cmd.AddCommand(dumpcmder.NewExportCmd())
	cmd.AddCommand(dumpcmder.NewImportCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
