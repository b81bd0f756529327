package main

import (
	"os"

	inkwellcmder "github.com/inkwellhq/inkwell/cmd/inkwell"
)

func main() {
	cmd := inkwellcmder.NewInkwellCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
