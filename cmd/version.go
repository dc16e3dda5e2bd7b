package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrisreddington/gh-formbridge/internal/config"
)

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the API version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gh-formbridge %s\n", config.Version)
			return err
		},
	}
}
