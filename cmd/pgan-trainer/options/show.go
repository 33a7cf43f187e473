package options

import (
	"fmt"
	"os"

	"github.com/deepprivacy/pgan/pganconfig"
	"github.com/deepprivacy/pgan/pkg/fileutil"
	"github.com/spf13/cobra"
)

// NewShowCommand implements "pgan-trainer show" command.
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Prints a stored options file",
		Run:   showFunc,
	}
	cmd.Flags().StringVar(&path, "path", "", "options file path")
	return cmd
}

func showFunc(cmd *cobra.Command, args []string) {
	if !fileutil.Exist(path) {
		fmt.Fprintf(os.Stderr, "cannot find options file %q\n", path)
		os.Exit(1)
	}
	cfg, err := pganconfig.Load(path)
	if err != nil {
		exitWithError(nil, fmt.Sprintf("failed to load options %q", path), err)
	}
	if err = resolveLogColor(cfg, defaultIsColor); err != nil {
		exitWithError(nil, "failed to resolve color", err)
	}
	cfg.Print(cmd.OutOrStdout())
}
