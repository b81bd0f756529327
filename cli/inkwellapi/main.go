package main

import (
	"os"

	servecmder "github.com/inkwellhq/inkwell/cmd/inkwell/serve"
)

func main() {
	cmd := servecmder.NewAPICmd()
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the config directory (default .inkwell or ~/.inkwell)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
