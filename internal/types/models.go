// Package types contains common type definitions used across the application.
// This package centralizes the submission data model so every pipeline stage shares it.
package types

// Coordinates identifies the target repository, branch and submission property
// taken from the entry route.
type Coordinates struct {
	Owner      string `json:"owner"`
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	Property   string `json:"property"`
}

// Submission is a decoded form submission.
type Submission struct {
	Fields  map[string]string `json:"fields"`
	Options map[string]string `json:"options"`
}

// SubmissionRequest couples the path coordinates with the decoded payload.
// It is not modified once decoded.
type SubmissionRequest struct {
	Coordinates
	Submission
}

// Option returns the named submission option, or "" when absent.
func (s Submission) Option(name string) string {
	if s.Options == nil {
		return ""
	}
	return s.Options[name]
}

// Issue represents an issue that can be created in a GitHub repository.
type Issue struct {
	Number    int      `json:"number,omitempty"`
	URL       string   `json:"url,omitempty"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// PullRequest represents a pull request that can be created in a GitHub repository.
type PullRequest struct {
	Number    int      `json:"number,omitempty"`
	URL       string   `json:"url,omitempty"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Head      string   `json:"head"`
	Base      string   `json:"base"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// PublishPlan is the fully resolved description of the remote mutations a
// submission requires. Building it has no side effects.
type PublishPlan struct {
	FilePath      string   `json:"file_path"`
	FileContent   []byte   `json:"-"`
	BranchName    string   `json:"branch_name"`
	CommitMessage string   `json:"commit_message"`
	Title         string   `json:"title"`
	Body          string   `json:"body"`
	UseIssue      bool     `json:"use_issue"`
	Labels        []string `json:"labels,omitempty"`
	Assignees     []string `json:"assignees,omitempty"`
}

// Resource identifies the pull request or issue created for a submission.
type Resource struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// PublishResult describes what the publisher created.
type PublishResult struct {
	Branch      string    `json:"branch"`
	CommitSHA   string    `json:"commit_sha,omitempty"`
	PullRequest *Resource `json:"pull_request,omitempty"`
	Issue       *Resource `json:"issue,omitempty"`
}
