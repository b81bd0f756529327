package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/inkwellhq/inkwell/pkg/cliui"
	"github.com/inkwellhq/inkwell/pkg/config"
)

// secretKeys are masked by list. get prints them in full since the caller
// named the key.
var secretKeys = map[string]bool{
	"client.token": true,
}

func checkKeys(keys ...string) error {
	for _, key := range keys {
		if !config.IsValidConfigKey(key) {
			return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
				key, strings.Join(config.ValidConfigKeys(), ", "))
		}
	}
	return nil
}

func writeSource(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func writeValue(w io.Writer, key, value string, width int) {
	pad := strings.Repeat(" ", max(width-len(key), 0))
	if value == "" {
		fmt.Fprintf(w, "  %s%s  %s\n", cliui.KeyStyle.Render(key), pad, cliui.DimStyle.Render("<not set>"))
		return
	}
	fmt.Fprintf(w, "  %s%s  %s\n", cliui.KeyStyle.Render(key), pad, cliui.ValueStyle.Render(value))
}

// maskSecret keeps a token's prefix and last four characters.
func maskSecret(v string) string {
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return v[:3] + "…" + v[len(v)-4:]
}

// section is the TOML table a dotted key lives in.
func section(key string) string {
	table, _, _ := strings.Cut(key, ".")
	return table
}
