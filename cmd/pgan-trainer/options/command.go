// Package options implements "pgan-trainer init" and "pgan-trainer show" commands.
package options

import (
	"fmt"
	"os"
	"strconv"

	"github.com/deepprivacy/pgan/pganconfig"
	"github.com/deepprivacy/pgan/pkg/terminal"
	"github.com/spf13/cobra"
)

var path string

func init() {
	cobra.EnablePrefixMatching = true
}

// resolveLogColor disables color output when the terminal does not support it,
// unless "log_color_override" is set.
func resolveLogColor(cfg *pganconfig.Config, isColor func() (string, error)) error {
	if cfg.LogColorOverride != "" {
		v, err := strconv.ParseBool(cfg.LogColorOverride)
		if err != nil {
			return fmt.Errorf("invalid log_color_override %q (%v)", cfg.LogColorOverride, err)
		}
		cfg.LogColor = v
		return nil
	}
	if _, err := isColor(); err != nil {
		cfg.LogColor = false
	}
	return nil
}

func exitWithError(cfg *pganconfig.Config, msg string, err error) {
	colorize := func(s string) string { return s }
	if cfg != nil {
		colorize = cfg.Colorize
	}
	fmt.Fprint(os.Stderr, colorize("\n\n[light_magenta]*********************************\n"))
	fmt.Fprintf(os.Stderr, colorize("[light_magenta]%s [default](%v)\n\n"), msg, err)
	os.Exit(1)
}

var defaultIsColor = terminal.IsColor
