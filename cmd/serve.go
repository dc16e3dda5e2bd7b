package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/config"
	"github.com/chrisreddington/gh-formbridge/internal/entry"
	"github.com/chrisreddington/gh-formbridge/internal/metrics"
	"github.com/chrisreddington/gh-formbridge/internal/server"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var addr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the form submission HTTP API",
		Long: `Serve the form submission HTTP API.

Settings are read from the environment (GITHUB_TOKEN, GITHUB_HOST,
FORMBRIDGE_ADDR, FORMBRIDGE_CONFIG_PATH, FORMBRIDGE_COMMIT_API,
FORMBRIDGE_ALLOWED_ORIGIN, FORMBRIDGE_DEBUG, FORMBRIDGE_LOG_FORMAT).
Without a token the server still starts but rejects submissions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.FromEnv()
			if cmd.Flags().Changed("addr") {
				settings.Addr = addr
			}
			if debug {
				settings.Debug = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := buildServer(settings, common.NewLoggerWithOutput(cmd.ErrOrStderr(), settings.Debug, settings.JSONLogs))
			return srv.ListenAndServe(ctx, settings.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "Address to listen on")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

// buildServer wires settings into a Server. A GitHub client that cannot be
// created leaves the entry route answering CONFIGURATION_ERROR.
func buildServer(settings config.Settings, logger *common.StandardLogger) *server.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var orchestrator *entry.Orchestrator
	client, err := newGitHubClient(settings, logger)
	if err != nil {
		logger.Error("GitHub client unavailable, submissions will be rejected: %v", err)
	} else {
		orchestrator = entry.New(client,
			entry.WithLogger(logger),
			entry.WithMetrics(m),
			entry.WithConfigPath(settings.ConfigPath),
		)
	}

	logger.Info("Serving on %s (commit API: %s)", settings.Addr, settings.CommitAPI)
	return server.New(orchestrator,
		server.WithLogger(logger),
		server.WithMetrics(m),
		server.WithAllowedOrigin(settings.AllowedOrigin),
	)
}
