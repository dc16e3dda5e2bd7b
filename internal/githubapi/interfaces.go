package githubapi

import (
	"context"

	"github.com/chrisreddington/gh-formbridge/internal/types"
)

// IssueInput represents the input for creating an issue
type IssueInput struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// PullRequestInput represents the input for creating a pull request
type PullRequestInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Head  string `json:"head"`
	Base  string `json:"base"`
}

// FileInput represents a single file committed to a branch
type FileInput struct {
	Path    string
	Content []byte
	Branch  string
	Message string
	// ParentSHA is the commit the branch is expected to point at.
	// The GraphQL commit API refuses to commit when the branch has moved.
	ParentSHA string
}

// BranchClient defines the interface for reading and creating branches
type BranchClient interface {
	GetBranchHeadCommit(ctx context.Context, owner, repo, branch string) (string, error)
	CreateBranch(ctx context.Context, owner, repo, name, fromSHA string) error
}

// ContentClient defines the interface for reading and committing files
type ContentClient interface {
	GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
	CommitFile(ctx context.Context, owner, repo string, input *FileInput) (string, error)
}

// PullRequestClient defines the interface for working with pull requests
type PullRequestClient interface {
	CreatePullRequest(ctx context.Context, owner, repo string, input *PullRequestInput) (*types.Resource, error)
	SetIssueMetadata(ctx context.Context, owner, repo string, number int, labels, assignees []string) error
}

// IssueClient defines the interface for working with issues
type IssueClient interface {
	CreateIssue(ctx context.Context, owner, repo string, input *IssueInput) (*types.Resource, error)
}

// GitHubClient combines all GitHub API client interfaces
type GitHubClient interface {
	BranchClient
	ContentClient
	PullRequestClient
	IssueClient
}
