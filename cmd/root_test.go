package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/config"
	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/githubapi"
	"github.com/chrisreddington/gh-formbridge/internal/testutil"
)

const timelineJSON = `{"fields":{"name":"A","email":"a@b.com","date":"2024-01-01","title":"T","description":"D"}}`

// useMockClient swaps the GitHub client factory for the duration of a test
func useMockClient(t *testing.T, mock *testutil.GitHubMock) {
	t.Helper()
	original := newGitHubClient
	newGitHubClient = func(_ config.Settings, logger common.Logger) (githubapi.GitHubClient, error) {
		require.NotNil(t, logger)
		return mock, nil
	}
	t.Cleanup(func() { newGitHubClient = original })
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestExecute(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	os.Args = []string{"gh-formbridge", "--help"}
	assert.NoError(t, Execute())
}

func TestExecuteWithError(t *testing.T) {
	_, _, err := execute(t, "", "invalid-command")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "gh-formbridge", root.Use)

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["submit"])
	assert.True(t, names["version"])
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "gh-formbridge 3.0.0\n", out)
}

func TestServeFlags(t *testing.T) {
	cmd := NewServeCmd()
	addr := cmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, config.DefaultAddr, addr.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("debug"))
}

func TestSubmitArgs(t *testing.T) {
	useMockClient(t, testutil.NewGitHubMock())
	_, _, err := execute(t, "", "submit", "octo", "site")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 4 arg(s)")
}

func TestSubmitFromStdin(t *testing.T) {
	mock := testutil.NewGitHubMock()
	useMockClient(t, mock)

	out, _, err := execute(t, timelineJSON, "submit", "octo", "site", "main", "timeline")
	require.NoError(t, err)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "Entry submitted for review as pull request #42", summary["message"])
	require.Len(t, mock.CreatedPRs, 1)
	assert.Equal(t, "New timeline entry: T", mock.CreatedPRs[0].Title)
}

func TestSubmitDryRunFromFile(t *testing.T) {
	mock := testutil.NewGitHubMock()
	useMockClient(t, mock)

	path := filepath.Join(t.TempDir(), "payload.txt")
	require.NoError(t, os.WriteFile(path,
		[]byte("fields[name]=A&fields[email]=a@b.com&fields[date]=d&fields[title]=T&fields[description]=D"), 0o600))

	out, _, err := execute(t, "", "submit", "octo", "site", "main", "timeline",
		"--file", path, "--content-type", "application/x-www-form-urlencoded", "--dry-run")
	require.NoError(t, err)

	var summary struct {
		DryRun bool              `json:"dry_run"`
		Plan   map[string]any    `json:"plan"`
		Record map[string]string `json:"record"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.True(t, summary.DryRun)
	assert.Equal(t, "New timeline entry: T", summary.Plan["title"])
	assert.Equal(t, "T", summary.Record["title"])
	assert.Zero(t, mock.MutationCount())
}

func TestSubmitValidationError(t *testing.T) {
	mock := testutil.NewGitHubMock()
	useMockClient(t, mock)

	_, _, err := execute(t, `{"fields":{"name":"A"}}`, "submit", "octo", "site", "main", "timeline")
	require.Error(t, err)
	assert.NotNil(t, errors.AsMissingFields(err))
	assert.Zero(t, mock.MutationCount())
}

func TestSubmitMissingFile(t *testing.T) {
	useMockClient(t, testutil.NewGitHubMock())

	_, _, err := execute(t, "", "submit", "octo", "site", "main", "timeline", "--file", "/does/not/exist.json")
	require.Error(t, err)
	assert.True(t, errors.IsLayer(err, errors.LayerFile))
}

func TestClientLoggerFollowsDebugFlag(t *testing.T) {
	var received common.Logger
	original := newGitHubClient
	newGitHubClient = func(_ config.Settings, logger common.Logger) (githubapi.GitHubClient, error) {
		received = logger
		logger.Debug("client debug line")
		return testutil.NewGitHubMock(), nil
	}
	t.Cleanup(func() { newGitHubClient = original })

	_, stderr, err := execute(t, timelineJSON, "submit", "octo", "site", "main", "timeline", "--dry-run", "--debug")
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Contains(t, stderr, "client debug line")

	var logs bytes.Buffer
	buildServer(config.Settings{Addr: ":0"}, common.NewLoggerWithOutput(&logs, true, false))
	assert.Contains(t, logs.String(), "client debug line")
}

func TestBuildServerWithoutToken(t *testing.T) {
	var logs bytes.Buffer
	settings := config.Settings{Addr: ":0", CommitAPI: config.CommitAPIREST}
	logger := common.NewLoggerWithOutput(&logs, false, false)

	srv := buildServer(settings, logger)
	require.NotNil(t, srv)
	assert.Contains(t, logs.String(), "GitHub client unavailable")
}
