// Package config provides application settings, constants and the per-repository
// property configuration document.
package config

import "time"

const (
	// DefaultConfigPath is the well-known location of the property configuration
	// document inside the target repository
	DefaultConfigPath = ".github/formbridge.yml"

	// DefaultAddr is the HTTP listen address used when none is configured
	DefaultAddr = ":8080"

	// DefaultGitHubHost is the Git hosting service host
	DefaultGitHubHost = "github.com"

	// DefaultAllowedOrigin is the CORS origin answered on every route
	DefaultAllowedOrigin = "*"

	// APITimeout is the per-request timeout of the GitHub REST and GraphQL clients
	APITimeout = 30 * time.Second

	// ShutdownTimeout bounds how long the server waits for in-flight requests on shutdown
	ShutdownTimeout = 30 * time.Second

	// MaxBodyBytes caps the size of an entry request body
	MaxBodyBytes = 1 << 20

	// BranchPrefix is prepended to every working branch created for a submission
	BranchPrefix = "formbridge"

	// DefaultFileTag is the type tag used in generated file names
	DefaultFileTag = "entry"

	// EmailField is the submitted field the record id is derived from
	EmailField = "email"

	// TimestampToken is replaced with a millisecond timestamp in filename templates
	TimestampToken = "{@timestamp}"

	// Version is reported by the version endpoint and command
	Version = "3.0.0"
)

// Commit APIs supported for writing the submission file.
const (
	CommitAPIREST    = "rest"
	CommitAPIGraphQL = "graphql"
)

// Output formats for the committed submission file.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)
