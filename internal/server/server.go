// Package server exposes the submission pipeline over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/config"
	"github.com/chrisreddington/gh-formbridge/internal/entry"
	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/metrics"
	"github.com/chrisreddington/gh-formbridge/internal/publish"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

// Server routes HTTP requests to the orchestrator.
type Server struct {
	router        chi.Router
	orchestrator  *entry.Orchestrator
	metrics       *metrics.Metrics
	logger        *common.StandardLogger
	allowedOrigin string
	maxBodyBytes  int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the base logger; each request logs with its own request id.
func WithLogger(logger *common.StandardLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAllowedOrigin sets the Access-Control-Allow-Origin value.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.allowedOrigin = origin
		}
	}
}

// WithMaxBodyBytes caps the size of entry request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New creates a Server. A nil orchestrator means credentials are missing: the
// entry route then answers CONFIGURATION_ERROR while the other routes work.
func New(orchestrator *entry.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orchestrator:  orchestrator,
		allowedOrigin: config.DefaultAllowedOrigin,
		maxBodyBytes:  config.MaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors(s.allowedOrigin))

	r.Route("/v3", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Post("/entry/{owner}/{repository}/{branch}/{property}", s.handleEntry)
		r.Get("/connect/{service}/{owner}/{repository}", s.handleConnect)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": config.Version})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":    chi.URLParam(r, "service"),
		"owner":      chi.URLParam(r, "owner"),
		"repository": chi.URLParam(r, "repository"),
	})
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	logger := s.loggerFor(r)

	if s.orchestrator == nil {
		logger.Error("Rejecting submission: GitHub client is not configured")
		writeError(w, http.StatusInternalServerError, ErrorEnvelope{
			Error:   CodeConfiguration,
			Message: "GitHub credentials are not configured",
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorEnvelope{
				Error:   CodePayloadTooLarge,
				Message: err.Error(),
			})
			return
		}
		// Unreadable bodies degrade to an empty payload.
		logger.Info("Could not read request body: %v", err)
	}

	in := entry.Input{
		Coordinates: types.Coordinates{
			Owner:      chi.URLParam(r, "owner"),
			Repository: chi.URLParam(r, "repository"),
			Branch:     chi.URLParam(r, "branch"),
			Property:   chi.URLParam(r, "property"),
		},
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
	}

	outcome, err := s.orchestrator.Submit(r.Context(), in, logger)
	if outcome != nil && outcome.Redirect != "" {
		http.Redirect(w, r, outcome.Redirect, http.StatusFound)
		return
	}
	if err != nil {
		status, envelope := errorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Submission to %s/%s failed: %v", in.Coordinates.Owner, in.Coordinates.Repository, err)
		}
		writeError(w, status, envelope)
		return
	}

	writeJSON(w, http.StatusOK, successResponse(outcome))
}

// errorResponse maps a pipeline error to a status code and envelope.
func errorResponse(err error) (int, ErrorEnvelope) {
	if missing := errors.AsMissingFields(err); missing != nil {
		return http.StatusBadRequest, ErrorEnvelope{
			Error:   CodeMissingRequiredFields,
			Message: missing.Error(),
			Fields:  missing.Fields,
		}
	}
	if stepErr := publish.AsStepError(err); stepErr != nil {
		return http.StatusInternalServerError, ErrorEnvelope{
			Error:   CodeGitHubAPI,
			Message: stepErr.Cause.Error(),
			Step:    stepErr.Step,
		}
	}
	if errors.IsLayer(err, errors.LayerConfig) {
		return http.StatusInternalServerError, ErrorEnvelope{
			Error:   CodeConfiguration,
			Message: err.Error(),
		}
	}
	return http.StatusInternalServerError, ErrorEnvelope{
		Error:   CodeInternal,
		Message: err.Error(),
	}
}

func successResponse(outcome *entry.Outcome) map[string]interface{} {
	resp := map[string]interface{}{
		"success": true,
		"message": outcome.Message,
	}
	if outcome.DryRun {
		resp["dry_run"] = true
		resp["plan"] = outcome.Plan
		return resp
	}
	if outcome.Result != nil {
		if outcome.Result.PullRequest != nil {
			resp[entry.KindPullRequest] = outcome.Result.PullRequest
		}
		if outcome.Result.Issue != nil {
			resp[entry.KindIssue] = outcome.Result.Issue
		}
	}
	return resp
}
