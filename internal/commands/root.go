// Package commands implements the guardctl command tree.
package commands

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute(version string) error {
	root := NewRootCmd(version)
	if err := root.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		return err
	}
	return nil
}

// NewRootCmd builds the command tree without executing it.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "guardctl",
		Short:         "Error boundary demo server and classification tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("guardctl %s\n", version))
	root.SetErr(os.Stderr)

	root.PersistentFlags().String("config-dir", "./configs", "Directory holding config_<APP_ENV>.yaml")
	root.PersistentFlags().String("env-prefix", "GUARD", "Environment variable prefix for config overrides")

	root.AddCommand(newServeCmd())
	root.AddCommand(newClassifyCmd())
	return root
}
