package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/githubapi"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

// GitHubClientMockConfig allows configuration of the mock GitHubClient behavior
type GitHubClientMockConfig struct {
	// Files maps "owner/repo@ref:path" to content served by GetFileContent.
	// Anything else is reported as not found.
	Files map[string]string

	FailGetBranchHead bool
	FailCreateBranch  bool
	FailCommitFile    bool
	FailCreatePR      bool
	FailSetMetadata   bool
	FailCreateIssue   bool
	FailGetFile       bool
	ErrorMsg          string
}

// CommittedFile records one CommitFile call
type CommittedFile struct {
	Owner   string
	Repo    string
	Path    string
	Branch  string
	Message string
	Content string
}

// CreatedBranch records one CreateBranch call
type CreatedBranch struct {
	Owner   string
	Repo    string
	Name    string
	FromSHA string
}

// GitHubMock provides a configurable, recording implementation of githubapi.GitHubClient
type GitHubMock struct {
	Config GitHubClientMockConfig

	mu              sync.Mutex
	Calls           []string
	CreatedBranches []CreatedBranch
	CommittedFiles  []CommittedFile
	CreatedPRs      []types.PullRequest
	CreatedIssues   []types.Issue
}

var _ githubapi.GitHubClient = (*GitHubMock)(nil)

// NewGitHubMock creates a mock that succeeds for all operations
func NewGitHubMock() *GitHubMock {
	return &GitHubMock{
		Config: GitHubClientMockConfig{Files: map[string]string{}},
	}
}

// NewFailingGitHubMock creates a mock that fails for the operations flagged in config
func NewFailingGitHubMock(config GitHubClientMockConfig) *GitHubMock {
	if config.Files == nil {
		config.Files = map[string]string{}
	}
	return &GitHubMock{Config: config}
}

// WithFile serves content for path at ref in owner/repo
func (m *GitHubMock) WithFile(owner, repo, ref, path, content string) *GitHubMock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Config.Files[fileKey(owner, repo, ref, path)] = content
	return m
}

// MutationCount returns the number of calls that changed remote state
func (m *GitHubMock) MutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c != "GetBranchHeadCommit" && c != "GetFileContent" {
			n++
		}
	}
	return n
}

func fileKey(owner, repo, ref, path string) string {
	return fmt.Sprintf("%s/%s@%s:%s", owner, repo, ref, path)
}

func (m *GitHubMock) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *GitHubMock) failure(defaultMsg string) error {
	msg := m.Config.ErrorMsg
	if msg == "" {
		msg = defaultMsg
	}
	return fmt.Errorf("%s", msg)
}

func (m *GitHubMock) GetBranchHeadCommit(ctx context.Context, owner, repo, branch string) (string, error) {
	m.record("GetBranchHeadCommit")
	if m.Config.FailGetBranchHead {
		return "", errors.APIError("get_branch_head", "failed to read branch '"+branch+"'",
			m.failure("simulated branch lookup failure"))
	}
	return DefaultValues.HeadSHA, nil
}

func (m *GitHubMock) CreateBranch(ctx context.Context, owner, repo, name, fromSHA string) error {
	m.record("CreateBranch")
	if m.Config.FailCreateBranch {
		return errors.APIError("create_branch", "failed to create branch '"+name+"'",
			m.failure("simulated branch creation failure"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatedBranches = append(m.CreatedBranches, CreatedBranch{Owner: owner, Repo: repo, Name: name, FromSHA: fromSHA})
	return nil
}

func (m *GitHubMock) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	m.record("GetFileContent")
	if m.Config.FailGetFile {
		return nil, errors.APIError("get_file_content", "failed to read '"+path+"'",
			m.failure("simulated file read failure"))
	}
	m.mu.Lock()
	content, ok := m.Config.Files[fileKey(owner, repo, ref, path)]
	m.mu.Unlock()
	if !ok {
		return nil, errors.APIError("get_file_content", "failed to read '"+path+"'",
			fmt.Errorf("HTTP 404: Not Found: %w", errors.ErrNotFound))
	}
	return []byte(content), nil
}

func (m *GitHubMock) CommitFile(ctx context.Context, owner, repo string, input *githubapi.FileInput) (string, error) {
	m.record("CommitFile")
	if m.Config.FailCommitFile {
		return "", errors.APIError("commit_file", "failed to commit '"+input.Path+"'",
			m.failure("simulated commit failure"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommittedFiles = append(m.CommittedFiles, CommittedFile{
		Owner:   owner,
		Repo:    repo,
		Path:    input.Path,
		Branch:  input.Branch,
		Message: input.Message,
		Content: string(input.Content),
	})
	return DefaultValues.CommitSHA, nil
}

func (m *GitHubMock) CreatePullRequest(ctx context.Context, owner, repo string, input *githubapi.PullRequestInput) (*types.Resource, error) {
	m.record("CreatePullRequest")
	if m.Config.FailCreatePR {
		return nil, errors.APIError("create_pull_request", "failed to create pull request '"+input.Title+"'",
			m.failure("simulated PR creation failure"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	number := DefaultValues.PRNumber + len(m.CreatedPRs)
	url := fmt.Sprintf("https://github.com/%s/%s/pull/%d", owner, repo, number)
	m.CreatedPRs = append(m.CreatedPRs, types.PullRequest{
		Number: number,
		URL:    url,
		Title:  input.Title,
		Body:   input.Body,
		Head:   input.Head,
		Base:   input.Base,
	})
	return &types.Resource{Number: number, URL: url}, nil
}

func (m *GitHubMock) SetIssueMetadata(ctx context.Context, owner, repo string, number int, labels, assignees []string) error {
	m.record("SetIssueMetadata")
	if m.Config.FailSetMetadata {
		return errors.APIError("set_issue_metadata", fmt.Sprintf("failed to add labels/assignees to #%d", number),
			m.failure("simulated metadata failure"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.CreatedPRs {
		if m.CreatedPRs[i].Number == number {
			m.CreatedPRs[i].Labels = append(m.CreatedPRs[i].Labels, labels...)
			m.CreatedPRs[i].Assignees = append(m.CreatedPRs[i].Assignees, assignees...)
		}
	}
	return nil
}

func (m *GitHubMock) CreateIssue(ctx context.Context, owner, repo string, input *githubapi.IssueInput) (*types.Resource, error) {
	m.record("CreateIssue")
	if m.Config.FailCreateIssue {
		return nil, errors.APIError("create_issue", "failed to create issue '"+input.Title+"'",
			m.failure("simulated issue creation failure"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	number := DefaultValues.IssueNumber + len(m.CreatedIssues)
	url := fmt.Sprintf("https://github.com/%s/%s/issues/%d", owner, repo, number)
	m.CreatedIssues = append(m.CreatedIssues, types.Issue{
		Number:    number,
		URL:       url,
		Title:     input.Title,
		Body:      input.Body,
		Labels:    input.Labels,
		Assignees: input.Assignees,
	})
	return &types.Resource{Number: number, URL: url}, nil
}
