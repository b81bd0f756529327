package generatecmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/api"
	"github.com/inkwellhq/inkwell/cmd/inkwell/clientflags"
	"github.com/inkwellhq/inkwell/pkg/genclient"
	"github.com/inkwellhq/inkwell/pkg/genstream"
)

type blueprintCommander struct {
	clientflags.Flags

	name        string
	source      string
	sourceFile  string
	blueprintID string
}

const blueprintLongDesc string = `Generate blueprint slots from source copy.

The source copy comes from --source, --source-file, or stdin when
--source-file is "-". Without --blueprint a new blueprint is created and its
ID is printed when generation finishes.

Examples:
  inkwell generate blueprint --name "Spring launch" --source "Meet Inkwell."
  inkwell generate blueprint --source-file notes.md
  cat notes.md | inkwell generate blueprint --source-file -
  inkwell generate blueprint --blueprint 3f2a... --json`

func newBlueprintCmd() *cobra.Command {
	cmder := &blueprintCommander{}

	cmd := &cobra.Command{
		Use:   "blueprint",
		Short: "Generate blueprint slots from source copy",
		Long:  blueprintLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.Load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmder.Register(cmd, true)
	cmd.Flags().StringVarP(&cmder.name, "name", "n", "", "Name for a new blueprint")
	cmd.Flags().StringVar(&cmder.source, "source", "", "Source copy to generate from")
	cmd.Flags().StringVarP(&cmder.sourceFile, "source-file", "f", "", "Read source copy from a file (- for stdin)")
	cmd.Flags().StringVarP(&cmder.blueprintID, "blueprint", "b", "", "Regenerate an existing blueprint")

	return cmd
}

func (c *blueprintCommander) run(cmd *cobra.Command) error {
	source, err := c.readSource(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if strings.TrimSpace(source) == "" && c.blueprintID == "" {
		return fmt.Errorf("source copy is required: pass --source or --source-file")
	}

	log := c.Logger()
	client, done, err := c.Client(log)
	if err != nil {
		return err
	}
	defer done()

	req := api.GenerateBlueprintRequest{
		BlueprintID: c.blueprintID,
		Name:        c.name,
		SourceText:  source,
	}

	res, err := runGeneration(cmd, "Generating blueprint", func(ctx context.Context, l genstream.Listener) (*genclient.Result, error) {
		return client.GenerateBlueprint(ctx, req, l)
	})
	if err != nil {
		return err
	}

	if err := saveResult(c.ConfigDir, "blueprint", res); err != nil {
		log.Warn("could not save generation result", "error", err)
	}
	return printResult(cmd.OutOrStdout(), "blueprint", res.EntityID, res.Session.Content(), c.JSON)
}

func (c *blueprintCommander) readSource(stdin io.Reader) (string, error) {
	switch c.sourceFile {
	case "":
		return c.source, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(c.sourceFile)
		if err != nil {
			return "", fmt.Errorf("reading source file: %w", err)
		}
		return string(data), nil
	}
}
