// Package githubapi is the Git hosting collaborator: the narrow set of GitHub
// REST and GraphQL operations the submission pipeline consumes.
package githubapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"
	graphql "github.com/cli/shurcooL-graphql"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/config"
	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

// GHClient is the main client for all GitHub API operations
type GHClient struct {
	gqlClient  *GQLClient
	restClient *RESTClient
	commitAPI  string
	logger     common.Logger
}

// GQLClient wraps the GraphQL client for testability
type GQLClient struct {
	client interface {
		DoWithContext(ctx context.Context, query string, variables map[string]interface{}, response interface{}) error
	}
}

// RESTClient wraps the REST client for testability
type RESTClient struct {
	client interface {
		RequestWithContext(ctx context.Context, method string, path string, body io.Reader) (*http.Response, error)
	}
}

// NewGHClient creates REST and GraphQL clients authenticated with the token from settings.
func NewGHClient(settings config.Settings) (*GHClient, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	opts := api.ClientOptions{
		AuthToken: settings.GitHubToken,
		Host:      settings.GitHubHost,
		Timeout:   config.APITimeout,
	}

	restRawClient, err := api.NewRESTClient(opts)
	if err != nil {
		return nil, errors.ConfigError("create_rest_client", "failed to create REST client", err)
	}

	gqlRawClient, err := api.NewGraphQLClient(opts)
	if err != nil {
		return nil, errors.ConfigError("create_graphql_client", "failed to create GraphQL client", err)
	}

	return &GHClient{
		gqlClient:  &GQLClient{client: gqlRawClient},
		restClient: &RESTClient{client: restRawClient},
		commitAPI:  settings.CommitAPI,
		logger:     common.NopLogger{},
	}, nil
}

// SetLogger sets the logger for debug output
func (c *GHClient) SetLogger(logger common.Logger) {
	if logger == nil {
		logger = common.NopLogger{}
	}
	c.logger = logger
}

// Do executes a GraphQL document
func (c *GQLClient) Do(ctx context.Context, query string, variables map[string]interface{}, response interface{}) error {
	return c.client.DoWithContext(ctx, query, variables, response)
}

// Request makes an HTTP request to the REST API, encoding body as JSON and
// decoding a successful response into response.
func (c *RESTClient) Request(ctx context.Context, method string, path string, body interface{}, response interface{}) error {
	var requestBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		requestBody = bytes.NewBuffer(jsonData)
	}

	resp, err := c.client.RequestWithContext(ctx, method, path, requestBody)
	if err != nil {
		return translateError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}

	if response != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return json.NewDecoder(resp.Body).Decode(response)
	}
	return nil
}

// translateError turns go-gh HTTP errors into "HTTP <status>: <message>" errors,
// wrapping errors.ErrNotFound for 404 responses.
func translateError(err error) error {
	var httpErr *api.HTTPError
	if !stderrors.As(err, &httpErr) {
		return err
	}
	msg := httpErr.Message
	if len(httpErr.Errors) > 0 && httpErr.Errors[0].Message != "" {
		msg += " - " + httpErr.Errors[0].Message
	}
	return statusError(httpErr.StatusCode, msg)
}

func statusError(status int, msg string) error {
	if status == http.StatusNotFound {
		return fmt.Errorf("HTTP %d: %s: %w", status, msg, errors.ErrNotFound)
	}
	return fmt.Errorf("HTTP %d: %s", status, msg)
}

// responseError reads a GitHub error body for more details
func responseError(resp *http.Response) error {
	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil || len(bodyBytes) == 0 {
		return statusError(resp.StatusCode, "API request failed")
	}

	var apiError struct {
		Message string `json:"message"`
		Errors  []struct {
			Field   string `json:"field"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if jsonErr := json.Unmarshal(bodyBytes, &apiError); jsonErr == nil && apiError.Message != "" {
		if len(apiError.Errors) > 0 && apiError.Errors[0].Message != "" {
			return statusError(resp.StatusCode, apiError.Message+" - "+apiError.Errors[0].Message)
		}
		return statusError(resp.StatusCode, apiError.Message)
	}
	return statusError(resp.StatusCode, string(bodyBytes))
}

// escapePath escapes each segment of a slash separated path
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func repoPath(owner, repo string) string {
	return fmt.Sprintf("repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
}

func (c *GHClient) requireREST() error {
	if c.restClient == nil {
		return errors.ConfigError("rest_client", "REST client is not initialized", nil)
	}
	return nil
}

// Branch operations

// GetBranchHeadCommit returns the SHA of the commit at the tip of branch
func (c *GHClient) GetBranchHeadCommit(ctx context.Context, owner, repo, branch string) (string, error) {
	if err := c.requireREST(); err != nil {
		return "", err
	}

	c.logger.Debug("Reading head of %s/%s@%s", owner, repo, branch)

	var response struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("%s/git/ref/heads/%s", repoPath(owner, repo), escapePath(branch))
	if err := c.restClient.Request(ctx, http.MethodGet, path, nil, &response); err != nil {
		c.logger.Debug("Failed to read head of %s: %v", branch, err)
		return "", errors.APIError("get_branch_head", fmt.Sprintf("failed to read branch '%s'", branch), err)
	}
	if response.Object.SHA == "" {
		return "", errors.APIError("get_branch_head", fmt.Sprintf("branch '%s' has no commit", branch), nil)
	}
	return response.Object.SHA, nil
}

// CreateBranch creates branch name pointing at fromSHA. It fails if the branch exists.
func (c *GHClient) CreateBranch(ctx context.Context, owner, repo, name, fromSHA string) error {
	if err := c.requireREST(); err != nil {
		return err
	}

	c.logger.Debug("Creating branch '%s' at %s in %s/%s", name, fromSHA, owner, repo)

	payload := map[string]interface{}{
		"ref": "refs/heads/" + name,
		"sha": fromSHA,
	}
	if err := c.restClient.Request(ctx, http.MethodPost, repoPath(owner, repo)+"/git/refs", payload, nil); err != nil {
		c.logger.Debug("Failed to create branch '%s': %v", name, err)
		return errors.APIError("create_branch", fmt.Sprintf("failed to create branch '%s'", name), err)
	}

	c.logger.Debug("Successfully created branch '%s'", name)
	return nil
}

// Content operations

// GetFileContent returns the decoded content of path at ref. A missing file
// yields an error wrapping errors.ErrNotFound.
func (c *GHClient) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	if err := c.requireREST(); err != nil {
		return nil, err
	}

	var response struct {
		Type     string `json:"type"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	reqPath := fmt.Sprintf("%s/contents/%s?ref=%s", repoPath(owner, repo), escapePath(path), url.QueryEscape(ref))
	if err := c.restClient.Request(ctx, http.MethodGet, reqPath, nil, &response); err != nil {
		return nil, errors.APIError("get_file_content", fmt.Sprintf("failed to read '%s'", path), err)
	}
	if response.Type != "" && response.Type != "file" {
		return nil, errors.APIError("get_file_content", fmt.Sprintf("'%s' is a %s, not a file", path, response.Type), nil)
	}
	if response.Encoding != "" && response.Encoding != "base64" {
		return nil, errors.APIError("get_file_content", fmt.Sprintf("unsupported encoding '%s'", response.Encoding), nil)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(response.Content, "\n", ""))
	if err != nil {
		return nil, errors.APIError("get_file_content", "failed to decode file content", err)
	}
	return data, nil
}

// CommitFile writes input.Content at input.Path on input.Branch and returns the commit SHA.
func (c *GHClient) CommitFile(ctx context.Context, owner, repo string, input *FileInput) (string, error) {
	c.logger.Debug("Committing '%s' to %s/%s@%s", input.Path, owner, repo, input.Branch)

	if c.commitAPI == config.CommitAPIGraphQL {
		return c.commitFileGraphQL(ctx, owner, repo, input)
	}
	return c.commitFileREST(ctx, owner, repo, input)
}

func (c *GHClient) commitFileREST(ctx context.Context, owner, repo string, input *FileInput) (string, error) {
	if err := c.requireREST(); err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"message": input.Message,
		"content": base64.StdEncoding.EncodeToString(input.Content),
		"branch":  input.Branch,
	}
	var response struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	path := fmt.Sprintf("%s/contents/%s", repoPath(owner, repo), escapePath(input.Path))
	if err := c.restClient.Request(ctx, http.MethodPut, path, payload, &response); err != nil {
		c.logger.Debug("Failed to commit '%s': %v", input.Path, err)
		return "", errors.APIError("commit_file", fmt.Sprintf("failed to commit '%s'", input.Path), err)
	}
	return response.Commit.SHA, nil
}

func (c *GHClient) commitFileGraphQL(ctx context.Context, owner, repo string, input *FileInput) (string, error) {
	if c.gqlClient == nil {
		return "", errors.ConfigError("graphql_client", "GraphQL client is not initialized", nil)
	}

	variables := map[string]interface{}{
		"input": map[string]interface{}{
			"branch": map[string]interface{}{
				"repositoryNameWithOwner": graphql.String(owner + "/" + repo),
				"branchName":              graphql.String(input.Branch),
			},
			"message": map[string]interface{}{
				"headline": graphql.String(input.Message),
			},
			"fileChanges": map[string]interface{}{
				"additions": []map[string]interface{}{
					{
						"path":     graphql.String(input.Path),
						"contents": graphql.String(base64.StdEncoding.EncodeToString(input.Content)),
					},
				},
			},
			"expectedHeadOid": graphql.String(input.ParentSHA),
		},
	}

	var response struct {
		CreateCommitOnBranch struct {
			Commit struct {
				Oid string `json:"oid"`
				URL string `json:"url"`
			} `json:"commit"`
		} `json:"createCommitOnBranch"`
	}
	if err := c.gqlClient.Do(ctx, createCommitOnBranchMutation, variables, &response); err != nil {
		c.logger.Debug("Failed to commit '%s' via GraphQL: %v", input.Path, err)
		return "", errors.APIError("commit_file", fmt.Sprintf("failed to commit '%s'", input.Path), err)
	}
	return response.CreateCommitOnBranch.Commit.Oid, nil
}

// PR operations

// CreatePullRequest opens a pull request and returns its number and URL
func (c *GHClient) CreatePullRequest(ctx context.Context, owner, repo string, input *PullRequestInput) (*types.Resource, error) {
	if err := c.requireREST(); err != nil {
		return nil, err
	}

	c.logger.Debug("Creating pull request '%s' in repository %s/%s (head: %s, base: %s)", input.Title, owner, repo, input.Head, input.Base)

	if input.Head == "" || input.Base == "" {
		return nil, errors.ValidationError("create_pull_request", "pull request head and base branches cannot be empty")
	}
	if input.Head == input.Base {
		return nil, errors.ValidationError("create_pull_request", fmt.Sprintf("pull request head and base branches cannot be the same (%s)", input.Head))
	}

	var response struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := c.restClient.Request(ctx, http.MethodPost, repoPath(owner, repo)+"/pulls", input, &response); err != nil {
		c.logger.Debug("Failed to create pull request '%s': %v", input.Title, err)
		return nil, errors.APIError("create_pull_request",
			fmt.Sprintf("failed to create pull request '%s' (head: %s, base: %s)", input.Title, input.Head, input.Base), err)
	}

	c.logger.Debug("Successfully created pull request #%d", response.Number)
	return &types.Resource{Number: response.Number, URL: response.HTMLURL}, nil
}

// SetIssueMetadata adds labels and assignees to an issue or pull request
func (c *GHClient) SetIssueMetadata(ctx context.Context, owner, repo string, number int, labels, assignees []string) error {
	if len(labels) == 0 && len(assignees) == 0 {
		return nil
	}
	if err := c.requireREST(); err != nil {
		return err
	}

	payload := map[string]interface{}{}
	if len(labels) > 0 {
		payload["labels"] = labels
	}
	if len(assignees) > 0 {
		payload["assignees"] = assignees
	}

	path := fmt.Sprintf("%s/issues/%d", repoPath(owner, repo), number)
	if err := c.restClient.Request(ctx, http.MethodPatch, path, payload, nil); err != nil {
		c.logger.Debug("Failed to add labels/assignees to #%d: %v", number, err)
		return errors.APIError("set_issue_metadata", fmt.Sprintf("failed to add labels/assignees to #%d", number), err)
	}
	return nil
}

// Issue operations

// CreateIssue opens an issue and returns its number and URL
func (c *GHClient) CreateIssue(ctx context.Context, owner, repo string, input *IssueInput) (*types.Resource, error) {
	if err := c.requireREST(); err != nil {
		return nil, err
	}

	c.logger.Debug("Creating issue '%s' in repository %s/%s", input.Title, owner, repo)

	var response struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := c.restClient.Request(ctx, http.MethodPost, repoPath(owner, repo)+"/issues", input, &response); err != nil {
		c.logger.Debug("Failed to create issue '%s': %v", input.Title, err)
		return nil, errors.APIError("create_issue", fmt.Sprintf("failed to create issue '%s'", input.Title), err)
	}

	c.logger.Debug("Successfully created issue #%d", response.Number)
	return &types.Resource{Number: response.Number, URL: response.HTMLURL}, nil
}
