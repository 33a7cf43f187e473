// Package version implements "pgan-trainer version" command.
package version

import (
	"fmt"

	"github.com/deepprivacy/pgan/version"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// NewCommand implements "pgan-trainer version" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints out pgan-trainer version",
		RunE:  versionFunc,
	}
}

func versionFunc(cmd *cobra.Command, args []string) error {
	d, err := yaml.Marshal(version.Get())
	if err != nil {
		return fmt.Errorf("failed to 'yaml.Marshal' %v", err)
	}
	_, err = cmd.OutOrStdout().Write(d)
	return err
}
