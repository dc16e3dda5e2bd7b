package config

import (
	"context"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

// FileFetcher reads a file from a repository at a ref. Implementations wrap
// errors.ErrNotFound when the file does not exist.
type FileFetcher interface {
	GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
}

// Resolver loads the property configuration document from the target branch.
type Resolver struct {
	fetcher FileFetcher
	path    string
	logger  common.Logger
}

// NewResolver creates a Resolver reading path through fetcher.
func NewResolver(fetcher FileFetcher, path string, logger common.Logger) *Resolver {
	if path == "" {
		path = DefaultConfigPath
	}
	if logger == nil {
		logger = common.NopLogger{}
	}
	return &Resolver{fetcher: fetcher, path: path, logger: logger}
}

// Resolve fetches and parses the document for coords. A missing or unparseable
// document yields (nil, nil) so callers fall back to built-in defaults; only
// cancellation of ctx is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, coords types.Coordinates) (Document, error) {
	data, err := r.fetcher.GetFileContent(ctx, coords.Owner, coords.Repository, r.path, coords.Branch)
	if err != nil {
		if errors.IsContextError(err) {
			return nil, errors.ContextError("fetch_property_config", err)
		}
		if errors.IsNotFound(err) {
			r.logger.Debug("No configuration document at %s on %s/%s@%s, using defaults", r.path, coords.Owner, coords.Repository, coords.Branch)
		} else {
			r.logger.Info("Could not fetch configuration document %s, using defaults: %v", r.path, err)
		}
		return nil, nil
	}

	doc, err := ParseDocument(data)
	if err != nil {
		r.logger.Info("Ignoring configuration document %s: %v", r.path, err)
		return nil, nil
	}
	if warn := doc.Validate(); warn != nil {
		r.logger.Info("Configuration document %s has problems: %v", r.path, warn)
	}

	r.logger.Debug("Loaded configuration document %s with %d propert(ies)", r.path, len(doc))
	return doc, nil
}
