// Package publish executes a PublishPlan against a repository: read the base
// branch head, create a working branch, commit the file, then open a pull
// request or an issue.
//
// Steps run in strict order and the first failure stops the sequence. Nothing
// already created is rolled back, so a failure after create_branch leaves the
// working branch (and possibly the commit) in place. The returned StepError
// names the step that failed so callers can tell how far publishing got.
package publish

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/githubapi"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

// Step names, in execution order.
const (
	StepGetBranchHead     = "get_branch_head"
	StepCreateBranch      = "create_branch"
	StepCommitFile        = "commit_file"
	StepCreatePullRequest = "create_pull_request"
	StepApplyPRMetadata   = "apply_pr_metadata"
	StepCreateIssue       = "create_issue"
)

// StepError reports the publisher step that failed and the steps that
// completed before it.
type StepError struct {
	Step      string
	Completed []string
	Branch    string
	Cause     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("publish failed at %s: %v", e.Step, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// OrphanedBranch reports whether the working branch was created before the failure.
func (e *StepError) OrphanedBranch() bool {
	for _, s := range e.Completed {
		if s == StepCreateBranch {
			return true
		}
	}
	return false
}

// AsStepError extracts a StepError from err's chain.
func AsStepError(err error) *StepError {
	var stepErr *StepError
	if stderrors.As(err, &stepErr) {
		return stepErr
	}
	return nil
}

// Publisher runs publish plans through a GitHub client.
type Publisher struct {
	client githubapi.GitHubClient
	logger common.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(client githubapi.GitHubClient, logger common.Logger) *Publisher {
	if logger == nil {
		logger = common.NopLogger{}
	}
	return &Publisher{client: client, logger: logger}
}

// run tracks progress through the steps of one Publish call.
type run struct {
	logger    common.Logger
	branch    string
	completed []string
}

func (r *run) fail(step string, err error) error {
	r.logger.Error("Publishing stopped at %s after [%s]: %v", step, strings.Join(r.completed, ", "), err)
	return &StepError{
		Step:      step,
		Completed: append([]string(nil), r.completed...),
		Branch:    r.branch,
		Cause:     err,
	}
}

func (r *run) done(step string) {
	r.completed = append(r.completed, step)
	r.logger.Debug("Publish step %s complete", step)
}

// Publish executes plan against coords. On failure the returned result holds
// whatever was created before the failing step alongside a *StepError.
func (p *Publisher) Publish(ctx context.Context, coords types.Coordinates, plan types.PublishPlan) (*types.PublishResult, error) {
	owner, repo := coords.Owner, coords.Repository
	r := &run{logger: p.logger}
	result := &types.PublishResult{}

	headSHA, err := p.client.GetBranchHeadCommit(ctx, owner, repo, coords.Branch)
	if err != nil {
		return result, r.fail(StepGetBranchHead, err)
	}
	r.done(StepGetBranchHead)

	if err := p.client.CreateBranch(ctx, owner, repo, plan.BranchName, headSHA); err != nil {
		return result, r.fail(StepCreateBranch, err)
	}
	r.branch = plan.BranchName
	result.Branch = plan.BranchName
	r.done(StepCreateBranch)

	commitSHA, err := p.client.CommitFile(ctx, owner, repo, &githubapi.FileInput{
		Path:      plan.FilePath,
		Content:   plan.FileContent,
		Branch:    plan.BranchName,
		Message:   plan.CommitMessage,
		ParentSHA: headSHA,
	})
	if err != nil {
		return result, r.fail(StepCommitFile, err)
	}
	result.CommitSHA = commitSHA
	r.done(StepCommitFile)

	if plan.UseIssue {
		issue, err := p.client.CreateIssue(ctx, owner, repo, &githubapi.IssueInput{
			Title:     plan.Title,
			Body:      plan.Body,
			Labels:    plan.Labels,
			Assignees: plan.Assignees,
		})
		if err != nil {
			return result, r.fail(StepCreateIssue, err)
		}
		result.Issue = issue
		r.done(StepCreateIssue)
		p.logger.Info("Created issue #%d for %s on %s/%s", issue.Number, plan.FilePath, owner, repo)
		return result, nil
	}

	pr, err := p.client.CreatePullRequest(ctx, owner, repo, &githubapi.PullRequestInput{
		Title: plan.Title,
		Body:  plan.Body,
		Head:  plan.BranchName,
		Base:  coords.Branch,
	})
	if err != nil {
		return result, r.fail(StepCreatePullRequest, err)
	}
	result.PullRequest = pr
	r.done(StepCreatePullRequest)

	if len(plan.Labels) > 0 || len(plan.Assignees) > 0 {
		if err := p.client.SetIssueMetadata(ctx, owner, repo, pr.Number, plan.Labels, plan.Assignees); err != nil {
			return result, r.fail(StepApplyPRMetadata, err)
		}
		r.done(StepApplyPRMetadata)
	}

	p.logger.Info("Created pull request #%d for %s on %s/%s", pr.Number, plan.FilePath, owner, repo)
	return result, nil
}
