// Package entry runs a form submission through the whole pipeline: decode the
// payload, resolve the property policy, process fields, build the publish plan
// and publish it.
package entry

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/config"
	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/fields"
	"github.com/chrisreddington/gh-formbridge/internal/githubapi"
	"github.com/chrisreddington/gh-formbridge/internal/metrics"
	"github.com/chrisreddington/gh-formbridge/internal/payload"
	"github.com/chrisreddington/gh-formbridge/internal/publish"
	"github.com/chrisreddington/gh-formbridge/internal/render"
	"github.com/chrisreddington/gh-formbridge/internal/submission"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

// Submission options read by the orchestrator.
const (
	OptionRedirect      = "redirect"
	OptionRedirectError = "redirectError"
)

// Kinds of resource a submission produces.
const (
	KindPullRequest = "pull_request"
	KindIssue       = "issue"
)

// Input is one raw entry request.
type Input struct {
	Coordinates types.Coordinates
	Body        []byte
	ContentType string
}

// Outcome describes a handled submission. It is returned alongside errors too,
// so callers can honour Redirect on failure.
type Outcome struct {
	Request  types.SubmissionRequest
	Record   submission.Record
	Plan     *types.PublishPlan
	Result   *types.PublishResult
	DryRun   bool
	Kind     string
	Message  string
	Redirect string
}

// Orchestrator sequences the submission pipeline.
type Orchestrator struct {
	client     githubapi.GitHubClient
	configPath string
	renderer   *render.Renderer
	builder    *submission.Builder
	builderOps []submission.Option
	metrics    *metrics.Metrics
	logger     common.Logger
	dryRun     bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the default logger used when Submit is given none.
func WithLogger(logger common.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records submission outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithConfigPath sets the repository path of the property config document.
func WithConfigPath(path string) Option {
	return func(o *Orchestrator) {
		if path != "" {
			o.configPath = path
		}
	}
}

// WithRenderer sets the renderer, and with it the clock, used to build plans.
func WithRenderer(r *render.Renderer) Option {
	return func(o *Orchestrator) {
		o.renderer = r
	}
}

// WithBuilderOptions passes options through to the submission builder.
func WithBuilderOptions(opts ...submission.Option) Option {
	return func(o *Orchestrator) {
		o.builderOps = append(o.builderOps, opts...)
	}
}

// WithDryRun stops every submission after its plan is built.
func WithDryRun(dryRun bool) Option {
	return func(o *Orchestrator) {
		o.dryRun = dryRun
	}
}

// New creates an Orchestrator publishing through client.
func New(client githubapi.GitHubClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:     client,
		configPath: config.DefaultConfigPath,
		renderer:   render.New(),
		logger:     common.NopLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.builder = submission.NewBuilder(o.renderer, o.builderOps...)
	return o
}

// Submit decodes in.Body and fetches the property config document
// concurrently, then processes the submission. Decode and config fetch
// failures are logged and fall back to an empty payload and built-in defaults.
func (o *Orchestrator) Submit(ctx context.Context, in Input, logger common.Logger) (*Outcome, error) {
	if logger == nil {
		logger = o.logger
	}
	start := time.Now()
	defer func() {
		o.metrics.ObserveSubmissionLatency(time.Since(start))
	}()

	var (
		sub types.Submission
		doc config.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sub, err = payload.Decode(in.Body, in.ContentType)
		if err != nil {
			logger.Info("Could not fully decode %s payload, continuing with the fields that were read: %v", in.ContentType, err)
		}
		logger.Debug("Decoded payload: %s", payload.Describe(sub))
		return nil
	})
	g.Go(func() error {
		var err error
		doc, err = config.NewResolver(o.client, o.configPath, logger).Resolve(gctx, in.Coordinates)
		return err
	})
	if err := g.Wait(); err != nil {
		o.metrics.IncrementOutcome(metrics.OutcomeError, "")
		return &Outcome{}, err
	}

	req := types.SubmissionRequest{Coordinates: in.Coordinates, Submission: sub}
	return o.Process(ctx, req, doc, logger)
}

// Process runs an already decoded request through validation, building and
// publishing using doc as the property config document (nil for defaults).
func (o *Orchestrator) Process(ctx context.Context, req types.SubmissionRequest, doc config.Document, logger common.Logger) (*Outcome, error) {
	if logger == nil {
		logger = o.logger
	}
	outcome := &Outcome{Request: req}

	policy := config.ForProperty(doc, req.Property)
	kind := KindPullRequest
	if policy.UsesIssue() {
		kind = KindIssue
	}
	outcome.Kind = kind

	processed, err := fields.Process(req.Fields, policy, logger)
	if err != nil {
		logger.Info("Rejected %s submission for %s/%s: %v", req.Property, req.Owner, req.Repository, err)
		o.metrics.IncrementOutcome(metrics.OutcomeValidationFailed, kind)
		return o.failed(outcome, err)
	}

	built, err := o.builder.Build(req, processed, policy)
	if err != nil {
		o.metrics.IncrementOutcome(metrics.OutcomeError, kind)
		return o.failed(outcome, err)
	}
	outcome.Record = built.Record
	outcome.Plan = &built.Plan
	logger.Debug("Built record %s for %s at %s", built.Record.ID(), req.Property, built.Plan.FilePath)

	if o.dryRun {
		logger.Info("Would publish %s to %s on %s/%s (skipped in dry-run mode)", built.Plan.FilePath, built.Plan.BranchName, req.Owner, req.Repository)
		o.metrics.IncrementOutcome(metrics.OutcomeDryRun, kind)
		outcome.DryRun = true
		outcome.Message = fmt.Sprintf("Dry run: %s would be committed to %s", built.Plan.FilePath, built.Plan.BranchName)
		return outcome, nil
	}

	if err := ctx.Err(); err != nil {
		o.metrics.IncrementOutcome(metrics.OutcomeError, kind)
		return o.failed(outcome, errors.ContextError("publish", err))
	}

	result, err := publish.NewPublisher(o.client, logger).Publish(ctx, req.Coordinates, built.Plan)
	outcome.Result = result
	if err != nil {
		if stepErr := publish.AsStepError(err); stepErr != nil {
			o.metrics.IncrementStepFailure(stepErr.Step)
			if stepErr.OrphanedBranch() {
				logger.Info("Branch %s was left in place on %s/%s", stepErr.Branch, req.Owner, req.Repository)
			}
		}
		o.metrics.IncrementOutcome(metrics.OutcomePublishFailed, kind)
		return o.failed(outcome, err)
	}

	o.metrics.IncrementOutcome(metrics.OutcomeCreated, kind)
	outcome.Message = successMessage(kind, result)
	outcome.Redirect = req.Option(OptionRedirect)
	return outcome, nil
}

func (o *Orchestrator) failed(outcome *Outcome, err error) (*Outcome, error) {
	outcome.Redirect = outcome.Request.Option(OptionRedirectError)
	return outcome, err
}

func successMessage(kind string, result *types.PublishResult) string {
	if kind == KindIssue && result.Issue != nil {
		return fmt.Sprintf("Entry submitted for review as issue #%d", result.Issue.Number)
	}
	if result.PullRequest != nil {
		return fmt.Sprintf("Entry submitted for review as pull request #%d", result.PullRequest.Number)
	}
	return "Entry submitted for review"
}
