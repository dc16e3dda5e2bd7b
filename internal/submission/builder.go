// Package submission builds the persisted record for a processed submission
// and the PublishPlan describing how it reaches the repository.
package submission

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/chrisreddington/gh-formbridge/internal/config"
	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/fields"
	"github.com/chrisreddington/gh-formbridge/internal/render"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

var (
	unsafeRefChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	repeatedDots   = regexp.MustCompile(`\.{2,}`)
)

// Record is the persisted submission: id, processed fields and submission date.
type Record map[string]string

// ID returns the record identifier.
func (r Record) ID() string {
	return r["id"]
}

// Built is everything derived from one submission.
type Built struct {
	Record Record
	Plan   types.PublishPlan
}

// Builder assembles records and publish plans.
type Builder struct {
	renderer  *render.Renderer
	newSuffix func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithSuffixSource overrides the random filename suffix generator.
func WithSuffixSource(fn func() string) Option {
	return func(b *Builder) {
		b.newSuffix = fn
	}
}

// NewBuilder creates a Builder using renderer for templates and the clock.
func NewBuilder(renderer *render.Renderer, opts ...Option) *Builder {
	b := &Builder{
		renderer:  renderer,
		newSuffix: func() string { return uuid.NewString()[:6] },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewRecord creates the record for processed fields at now. The id is the
// digest of the submitted email, or a random UUID when no email was submitted.
// The record's date always reflects now, replacing any submitted "date" field.
func NewRecord(processed fields.Processed, now time.Time) Record {
	record := make(Record, len(processed.Fields)+2)
	for name, value := range processed.Fields {
		record[name] = value
	}
	if strings.TrimSpace(processed.Email) != "" {
		record["id"] = fields.Digest(processed.Email)
	} else {
		record["id"] = uuid.NewString()
	}
	record["date"] = now.UTC().Format(render.ISO8601)
	return record
}

// Encode serialises the record as indented JSON or YAML.
func (r Record) Encode(format string) ([]byte, error) {
	if format == config.FormatYAML {
		data, err := yaml.Marshal(map[string]string(r))
		if err != nil {
			return nil, errors.WrapWithOperation(err, "build", "encode_record", "failed to encode record as YAML")
		}
		return data, nil
	}
	data, err := json.MarshalIndent(map[string]string(r), "", "  ")
	if err != nil {
		return nil, errors.WrapWithOperation(err, "build", "encode_record", "failed to encode record as JSON")
	}
	return append(data, '\n'), nil
}

// Build produces the record and publish plan for a processed submission.
func (b *Builder) Build(req types.SubmissionRequest, processed fields.Processed, policy config.PropertyConfig) (*Built, error) {
	now := b.renderer.Now()
	millis := strconv.FormatInt(now.UnixMilli(), 10)

	record := NewRecord(processed, now)
	content, err := record.Encode(policy.Format)
	if err != nil {
		return nil, err
	}

	ctx := render.Context{
		Fields:   renderFields(processed.Fields, record),
		Property: req.Property,
		Options:  req.Options,
	}

	filePath := b.filePath(policy, ctx, millis)
	plan := types.PublishPlan{
		FilePath:      filePath,
		FileContent:   content,
		BranchName:    BranchName(req.Property, now),
		CommitMessage: fmt.Sprintf("Add %s entry %s", req.Property, path.Base(filePath)),
		UseIssue:      policy.UsesIssue(),
	}

	title := b.title(policy.Title, ctx)
	if plan.UseIssue {
		issue := policy.GitHubIssue
		plan.Title = title
		if issue.Title != "" {
			plan.Title = b.renderer.Render(issue.Title, ctx)
		}
		plan.Body = b.renderer.Body(issue.Body, ctx)
		plan.Labels = issue.Labels
		plan.Assignees = issue.Assignees
	} else {
		plan.Title = title
		plan.Body = b.renderer.Body(policy.PullRequestBody, ctx)
		plan.Labels = policy.Labels
		plan.Assignees = policy.Assignees
	}

	return &Built{Record: record, Plan: plan}, nil
}

// renderFields returns the fields templates see: the processed fields with the
// record's date, so rendered text agrees with the committed file.
func renderFields(processed map[string]string, record Record) map[string]string {
	out := make(map[string]string, len(processed)+1)
	for name, value := range processed {
		out[name] = value
	}
	out["date"] = record["date"]
	return out
}

func (b *Builder) title(tmpl string, ctx render.Context) string {
	if tmpl != "" {
		return b.renderer.Render(tmpl, ctx)
	}
	title := fmt.Sprintf("New %s entry", ctx.Property)
	if t := strings.TrimSpace(ctx.Fields["title"]); t != "" {
		title += ": " + t
	}
	return title
}

func (b *Builder) filePath(policy config.PropertyConfig, ctx render.Context, millis string) string {
	dir := b.renderer.Render(policy.Path, ctx)

	var name string
	if policy.Filename != "" {
		name = b.renderer.Render(strings.ReplaceAll(policy.Filename, config.TimestampToken, millis), ctx)
	} else {
		name = fmt.Sprintf("%s-%s-%s", config.DefaultFileTag, millis, b.newSuffix())
	}
	name = strings.ReplaceAll(name, "/", "-")
	if path.Ext(name) == "" {
		name += "." + extension(policy.Format)
	}
	return CleanPath(path.Join(dir, name))
}

func extension(format string) string {
	if format == config.FormatYAML {
		return "yml"
	}
	return "json"
}

// CleanPath normalises a repository path and keeps it inside the repository root.
func CleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// BranchName derives the working branch for property at now. The property is
// reduced to a slug that is valid inside a git ref name.
func BranchName(property string, now time.Time) string {
	slug := unsafeRefChars.ReplaceAllString(property, "-")
	slug = repeatedDots.ReplaceAllString(slug, ".")
	slug = strings.Trim(slug, "-.")
	for strings.HasSuffix(slug, ".lock") {
		slug = strings.Trim(strings.TrimSuffix(slug, ".lock"), "-.")
	}
	if slug == "" {
		slug = "entry"
	}
	return fmt.Sprintf("%s/%s-%d", config.BranchPrefix, slug, now.UnixMilli())
}
