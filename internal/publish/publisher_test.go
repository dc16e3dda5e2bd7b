package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/testutil"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

var coords = types.Coordinates{Owner: "octo", Repository: "site", Branch: "main", Property: "timeline"}

func prPlan() types.PublishPlan {
	return types.PublishPlan{
		FilePath:      "data/timeline/entries/entry-1.json",
		FileContent:   []byte(`{"id":"x"}`),
		BranchName:    "formbridge/timeline-1",
		CommitMessage: "Add timeline entry entry-1.json",
		Title:         "New timeline entry: T",
		Body:          "body",
	}
}

func TestPublish_PullRequest(t *testing.T) {
	mock := testutil.NewGitHubMock()
	result, err := NewPublisher(mock, nil).Publish(context.Background(), coords, prPlan())
	require.NoError(t, err)

	assert.Equal(t, []string{"GetBranchHeadCommit", "CreateBranch", "CommitFile", "CreatePullRequest"}, mock.Calls)
	assert.Equal(t, "formbridge/timeline-1", result.Branch)
	assert.Equal(t, testutil.DefaultValues.CommitSHA, result.CommitSHA)
	require.NotNil(t, result.PullRequest)
	assert.Equal(t, testutil.DefaultValues.PRNumber, result.PullRequest.Number)
	assert.Nil(t, result.Issue)

	require.Len(t, mock.CreatedBranches, 1)
	assert.Equal(t, testutil.DefaultValues.HeadSHA, mock.CreatedBranches[0].FromSHA)
	require.Len(t, mock.CommittedFiles, 1)
	assert.Equal(t, "formbridge/timeline-1", mock.CommittedFiles[0].Branch)
	assert.Equal(t, `{"id":"x"}`, mock.CommittedFiles[0].Content)
	require.Len(t, mock.CreatedPRs, 1)
	assert.Equal(t, "formbridge/timeline-1", mock.CreatedPRs[0].Head)
	assert.Equal(t, "main", mock.CreatedPRs[0].Base)
	assert.Equal(t, "New timeline entry: T", mock.CreatedPRs[0].Title)
}

func TestPublish_PullRequestMetadata(t *testing.T) {
	mock := testutil.NewGitHubMock()
	plan := prPlan()
	plan.Labels = []string{"submission"}
	plan.Assignees = []string{"octocat"}

	_, err := NewPublisher(mock, nil).Publish(context.Background(), coords, plan)
	require.NoError(t, err)

	assert.Equal(t, "SetIssueMetadata", mock.Calls[len(mock.Calls)-1])
	assert.Equal(t, []string{"submission"}, mock.CreatedPRs[0].Labels)
	assert.Equal(t, []string{"octocat"}, mock.CreatedPRs[0].Assignees)
}

func TestPublish_Issue(t *testing.T) {
	mock := testutil.NewGitHubMock()
	plan := prPlan()
	plan.UseIssue = true
	plan.Labels = []string{"triage"}

	result, err := NewPublisher(mock, nil).Publish(context.Background(), coords, plan)
	require.NoError(t, err)

	assert.Equal(t, []string{"GetBranchHeadCommit", "CreateBranch", "CommitFile", "CreateIssue"}, mock.Calls)
	require.NotNil(t, result.Issue)
	assert.Equal(t, testutil.DefaultValues.IssueNumber, result.Issue.Number)
	assert.Nil(t, result.PullRequest)
	assert.Empty(t, mock.CreatedPRs)
	assert.Equal(t, []string{"triage"}, mock.CreatedIssues[0].Labels)
}

func TestPublish_StepFailures(t *testing.T) {
	tests := []struct {
		name      string
		config    testutil.GitHubClientMockConfig
		useIssue  bool
		labels    []string
		step      string
		completed []string
		calls     int
		orphaned  bool
	}{
		{
			name:   "branch head",
			config: testutil.GitHubClientMockConfig{FailGetBranchHead: true},
			step:   StepGetBranchHead,
			calls:  1,
		},
		{
			name:      "branch exists",
			config:    testutil.GitHubClientMockConfig{FailCreateBranch: true, ErrorMsg: "HTTP 422: Reference already exists"},
			step:      StepCreateBranch,
			completed: []string{StepGetBranchHead},
			calls:     2,
		},
		{
			name:      "commit",
			config:    testutil.GitHubClientMockConfig{FailCommitFile: true},
			step:      StepCommitFile,
			completed: []string{StepGetBranchHead, StepCreateBranch},
			calls:     3,
			orphaned:  true,
		},
		{
			name:      "pull request",
			config:    testutil.GitHubClientMockConfig{FailCreatePR: true},
			step:      StepCreatePullRequest,
			completed: []string{StepGetBranchHead, StepCreateBranch, StepCommitFile},
			calls:     4,
			orphaned:  true,
		},
		{
			name:      "pull request metadata",
			config:    testutil.GitHubClientMockConfig{FailSetMetadata: true},
			labels:    []string{"x"},
			step:      StepApplyPRMetadata,
			completed: []string{StepGetBranchHead, StepCreateBranch, StepCommitFile, StepCreatePullRequest},
			calls:     5,
			orphaned:  true,
		},
		{
			name:      "issue",
			config:    testutil.GitHubClientMockConfig{FailCreateIssue: true},
			useIssue:  true,
			step:      StepCreateIssue,
			completed: []string{StepGetBranchHead, StepCreateBranch, StepCommitFile},
			calls:     4,
			orphaned:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewFailingGitHubMock(tt.config)
			logger := &testutil.MockLogger{}
			plan := prPlan()
			plan.UseIssue = tt.useIssue
			plan.Labels = tt.labels

			result, err := NewPublisher(mock, logger).Publish(context.Background(), coords, plan)
			require.Error(t, err)
			require.NotNil(t, result)

			stepErr := AsStepError(err)
			require.NotNil(t, stepErr)
			assert.Equal(t, tt.step, stepErr.Step)
			assert.Equal(t, tt.completed, stepErr.Completed)
			assert.Equal(t, tt.orphaned, stepErr.OrphanedBranch())
			assert.Len(t, mock.Calls, tt.calls, "no step runs after the failing one")
			assert.True(t, errors.IsLayer(err, errors.LayerAPI))
			assert.NotEmpty(t, logger.ErrorCalls)

			if tt.orphaned {
				assert.Equal(t, plan.BranchName, stepErr.Branch)
				assert.Equal(t, plan.BranchName, result.Branch)
			} else {
				assert.Empty(t, stepErr.Branch)
			}
		})
	}
}

func TestStepError(t *testing.T) {
	cause := errors.APIError("create_branch", "failed to create branch 'b'", nil)
	err := &StepError{Step: StepCreateBranch, Cause: cause}

	assert.Equal(t, "publish failed at create_branch: [api:create_branch] failed to create branch 'b'", err.Error())
	assert.Equal(t, cause, err.Unwrap())
	assert.Nil(t, AsStepError(cause))
}
