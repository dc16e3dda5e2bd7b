package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/config"
	"github.com/chrisreddington/gh-formbridge/internal/entry"
	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

// submitSummary is what the submit command prints on success.
type submitSummary struct {
	Message string               `json:"message"`
	DryRun  bool                 `json:"dry_run,omitempty"`
	Plan    *types.PublishPlan   `json:"plan,omitempty"`
	Record  map[string]string    `json:"record,omitempty"`
	Result  *types.PublishResult `json:"result,omitempty"`
}

// NewSubmitCmd creates the submit command
func NewSubmitCmd() *cobra.Command {
	var file string
	var contentType string
	var dryRun bool
	var debug bool

	cmd := &cobra.Command{
		Use:   "submit <owner> <repository> <branch> <property>",
		Short: "Submit a payload file as a form entry",
		Long: `Submit a payload file as a form entry without running the server.

The payload is read from --file (or stdin when "-") and decoded as JSON,
URL-encoded or multipart according to --content-type. With --dry-run the
publish plan is printed and nothing is written to the repository.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.FromEnv()
			settings.Debug = settings.Debug || debug

			body, err := readPayload(cmd, file)
			if err != nil {
				return err
			}

			logger := common.NewLoggerWithOutput(cmd.ErrOrStderr(), settings.Debug, settings.JSONLogs)
			client, err := newGitHubClient(settings, logger)
			if err != nil {
				return err
			}

			orchestrator := entry.New(client,
				entry.WithLogger(logger),
				entry.WithConfigPath(settings.ConfigPath),
				entry.WithDryRun(dryRun),
			)

			outcome, err := orchestrator.Submit(cmd.Context(), entry.Input{
				Coordinates: types.Coordinates{
					Owner:      args[0],
					Repository: args[1],
					Branch:     args[2],
					Property:   args[3],
				},
				Body:        body,
				ContentType: contentType,
			}, logger)
			if err != nil {
				return err
			}

			summary := submitSummary{
				Message: outcome.Message,
				DryRun:  outcome.DryRun,
				Result:  outcome.Result,
			}
			if outcome.DryRun {
				summary.Plan = outcome.Plan
				summary.Record = outcome.Record
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Payload file, or - for stdin")
	cmd.Flags().StringVar(&contentType, "content-type", "application/json", "Payload content type")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the publish plan without writing to the repository")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

func readPayload(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithContextSafe(
			errors.FileError("read_payload", "failed to read payload file", err), "path", file)
	}
	return data, nil
}
