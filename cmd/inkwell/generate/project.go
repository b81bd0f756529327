package generatecmder

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/cmd/inkwell/clientflags"
	"github.com/inkwellhq/inkwell/pkg/genclient"
	"github.com/inkwellhq/inkwell/pkg/genstream"
)

type projectCommander struct {
	clientflags.Flags

	fieldValues map[string]string
}

const projectLongDesc string = `Fill a project's fields and write its copy.

Field values passed with --set are saved on the project before generation.
Empty fields are suggested from the project's blueprint.

Examples:
  inkwell generate project 9c41...
  inkwell generate project 9c41... --set tone=formal --set productName="Inkwell Pro"
  inkwell generate project 9c41... --json --transcript stream.ndjson`

func newProjectCmd() *cobra.Command {
	cmder := &projectCommander{}

	cmd := &cobra.Command{
		Use:   "project <project-id>",
		Short: "Fill a project's fields and write its copy",
		Long:  projectLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.Load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmder.Register(cmd, true)
	cmd.Flags().StringToStringVar(&cmder.fieldValues, "set", nil, "Field value as fieldId=value (repeatable)")

	return cmd
}

func (c *projectCommander) run(cmd *cobra.Command, projectID string) error {
	log := c.Logger()
	client, done, err := c.Client(log)
	if err != nil {
		return err
	}
	defer done()

	res, err := runGeneration(cmd, "Generating project copy", func(ctx context.Context, l genstream.Listener) (*genclient.Result, error) {
		return client.GenerateProject(ctx, projectID, c.fieldValues, l)
	})
	if err != nil {
		return err
	}

	if err := saveResult(c.ConfigDir, "project", res); err != nil {
		log.Warn("could not save generation result", "error", err)
	}
	return printResult(cmd.OutOrStdout(), "project", res.EntityID, res.Session.Content(), c.JSON)
}
