// Package versioncmder
package versioncmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/pkg/utils"
)

// Info is the build metadata printed by the version command.
type Info struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	Buildtime string `json:"buildtime"`
}

func NewVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build metadata as JSON")
	return cmd
}

func run(w io.Writer, asJSON bool) error {
	info := Info{Version: utils.Version, Sha: utils.Sha, Buildtime: utils.Buildtime}
	if asJSON {
		return json.NewEncoder(w).Encode(info)
	}
	_, err := fmt.Fprintf(w, "Version: %s\nSha: %s\nBuilt at: %s\n", info.Version, info.Sha, info.Buildtime)
	return err
}
