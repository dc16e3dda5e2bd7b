package config

import (
	"os"
	"strings"

	"github.com/chrisreddington/gh-formbridge/internal/errors"
)

// Settings is the process-wide configuration, loaded once at start-up and
// read-only afterwards.
type Settings struct {
	Addr          string
	GitHubToken   string
	GitHubHost    string
	ConfigPath    string
	CommitAPI     string
	AllowedOrigin string
	Debug         bool
	JSONLogs      bool
}

// FromEnv builds Settings from environment variables so main stays lean.
func FromEnv() Settings {
	return Settings{
		Addr:          getEnv("FORMBRIDGE_ADDR", DefaultAddr),
		GitHubToken:   firstEnv("GITHUB_TOKEN", "GH_TOKEN"),
		GitHubHost:    getEnv("GITHUB_HOST", DefaultGitHubHost),
		ConfigPath:    getEnv("FORMBRIDGE_CONFIG_PATH", DefaultConfigPath),
		CommitAPI:     strings.ToLower(getEnv("FORMBRIDGE_COMMIT_API", CommitAPIREST)),
		AllowedOrigin: getEnv("FORMBRIDGE_ALLOWED_ORIGIN", DefaultAllowedOrigin),
		Debug:         getEnvBool("FORMBRIDGE_DEBUG"),
		JSONLogs:      strings.EqualFold(os.Getenv("FORMBRIDGE_LOG_FORMAT"), "json"),
	}
}

// Validate reports configuration that prevents submissions from being published.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.GitHubToken) == "" {
		return errors.ConfigError("load_settings", "GITHUB_TOKEN is not set", nil)
	}
	switch s.CommitAPI {
	case CommitAPIREST, CommitAPIGraphQL:
	default:
		return errors.WithContextSafe(
			errors.ConfigError("load_settings", "unsupported commit API", nil),
			"commit_api", s.CommitAPI)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func getEnvBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
