// Package cmd implements the gh-formbridge command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/config"
	"github.com/chrisreddington/gh-formbridge/internal/githubapi"
)

// newGitHubClient builds the GitHub client for a command, sending its debug
// output to logger. Tests replace it.
var newGitHubClient = func(settings config.Settings, logger common.Logger) (githubapi.GitHubClient, error) {
	client, err := githubapi.NewGHClient(settings)
	if err != nil {
		return nil, err
	}
	client.SetLogger(logger)
	return client, nil
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gh-formbridge",
		Short:         "Turn form submissions into GitHub pull requests and issues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewSubmitCmd())
	root.AddCommand(NewVersionCmd())
	return root
}

var rootCmd = NewRootCmd()

// Execute runs the root command against os.Args.
func Execute() error {
	return rootCmd.Execute()
}
