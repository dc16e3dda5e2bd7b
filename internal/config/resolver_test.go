package config

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

type fakeFetcher struct {
	data  []byte
	err   error
	calls []string
}

func (f *fakeFetcher) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s/%s:%s@%s", owner, repo, path, ref))
	return f.data, f.err
}

var coords = types.Coordinates{Owner: "octo", Repository: "site", Branch: "main", Property: "timeline"}

func TestResolver_Resolve(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte(sampleDocument)}
	resolver := NewResolver(fetcher, "", nil)

	doc, err := resolver.Resolve(context.Background(), coords)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.True(t, doc["timeline"].UsesIssue())
	assert.Equal(t, []string{"octo/site:.github/formbridge.yml@main"}, fetcher.calls)
}

func TestResolver_FailsOpen(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
	}{
		{name: "not found", fetcher: &fakeFetcher{err: fmt.Errorf("config: %w", errors.ErrNotFound)}},
		{name: "api failure", fetcher: &fakeFetcher{err: fmt.Errorf("HTTP 502: Bad Gateway")}},
		{name: "unparseable", fetcher: &fakeFetcher{data: []byte("timeline: [oops")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewResolver(tt.fetcher, "custom.yml", nil).Resolve(context.Background(), coords)
			require.NoError(t, err)
			assert.Nil(t, doc)
			assert.Equal(t, Defaults("timeline"), ForProperty(doc, "timeline"))
		})
	}
}

func TestResolver_PropagatesCancellation(t *testing.T) {
	fetcher := &fakeFetcher{err: context.Canceled}

	_, err := NewResolver(fetcher, "", nil).Resolve(context.Background(), coords)
	require.Error(t, err)
	assert.True(t, errors.IsLayer(err, errors.LayerContext))
}
