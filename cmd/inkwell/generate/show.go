package generatecmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/pkg/cliui"
	"github.com/inkwellhq/inkwell/pkg/dotdir"
)

func newShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the last generation result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			last, err := dotdir.NewManager().LoadLastGeneration(configDir)
			if err != nil {
				return err
			}
			if last == nil {
				return errors.New("no generation saved yet: run 'inkwell generate blueprint' or 'inkwell generate project'")
			}

			out := cmd.OutOrStdout()
			if !asJSON {
				fmt.Fprintf(out, "\n  %s %s\n",
					cliui.KeyStyle.Render("Generated:"),
					cliui.DimStyle.Render(last.At.Local().Format("2006-01-02 15:04:05")),
				)
			}
			return printResult(out, last.Trigger, last.EntityID, last.Content, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON instead of rendered text")
	return cmd
}
