// Package generatecmder provides the generate command, which streams a
// blueprint or project generation from a running inkwell API server.
package generatecmder

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/pkg/cliui"
	"github.com/inkwellhq/inkwell/pkg/dotdir"
	"github.com/inkwellhq/inkwell/pkg/genclient"
	"github.com/inkwellhq/inkwell/pkg/genstream"
)

const generateLongDesc string = `Generate copy with a running inkwell API server.

Generation progress streams live: an animated progress view on a terminal,
plain progress lines otherwise. The final result is saved so it can be shown
again with "inkwell generate show".

Use subcommands to choose what to generate:
  inkwell generate blueprint     Generate blueprint slots from source copy
  inkwell generate project <id>  Fill a project's fields and write its copy
  inkwell generate show          Show the last generation result`

const generateShortDesc string = "Generate blueprints and project copy"

func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: generateShortDesc,
		Long:  generateLongDesc,
	}

	cmd.AddCommand(newBlueprintCmd())
	cmd.AddCommand(newProjectCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

// saveResult stores a successful generation for "inkwell generate show".
func saveResult(configDir, trigger string, res *genclient.Result) error {
	last := &dotdir.LastGeneration{
		Trigger:  trigger,
		EntityID: res.EntityID,
		Content:  res.Session.Content(),
		At:       time.Now().UTC(),
	}
	return dotdir.NewManager().SaveLastGeneration(last, configDir)
}

type generateFunc func(ctx context.Context, l genstream.Listener) (*genclient.Result, error)

// runGeneration shows progress for run on the command output and returns
// its result.
func runGeneration(cmd *cobra.Command, title string, run generateFunc) (*genclient.Result, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var res *genclient.Result
	err := cliui.RunProgress(ctx, cmd.OutOrStdout(), title, func(ctx context.Context, l genstream.Listener) error {
		var err error
		res, err = run(ctx, l)
		return err
	})
	return res, err
}
