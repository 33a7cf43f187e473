// pgan-trainer loads the options of a progressive-growing GAN training run
// and bootstraps its distributed process group.
package main

import (
	"fmt"
	"os"

	"github.com/deepprivacy/pgan/cmd/pgan-trainer/options"
	"github.com/deepprivacy/pgan/cmd/pgan-trainer/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:        "pgan-trainer",
	Short:      "Progressive-growing GAN trainer CLI",
	SuggestFor: []string{"pgan", "trainer"},
}

func init() {
	cobra.EnablePrefixMatching = true
}

func init() {
	rootCmd.AddCommand(
		options.NewInitCommand(),
		options.NewShowCommand(),
		version.NewCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pgan-trainer failed %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}
