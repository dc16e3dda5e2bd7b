// Package render expands placeholder tokens in pull request bodies, issue
// bodies, titles and file paths.
//
// Recognised placeholders:
//
//	{{fields.<name>}}  submitted field value, empty when absent
//	{{date}}           current time, ISO-8601 in UTC
//	{{options.slug}}   the property name
//	{{options.<name>}} any other submitted option, empty when absent
//
// Literal `\n` sequences become line breaks after placeholders are expanded.
package render

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fatih/camelcase"

	"github.com/chrisreddington/gh-formbridge/internal/config"
)

// ISO8601 is the timestamp layout used for {{date}} and submission records.
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

// Footer closes every generated default body.
const Footer = "---\n_This entry was submitted through a form and is awaiting review._"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z]+)(?:\.([^{}\s]+))?\s*\}\}`)

// Context is the data placeholders are expanded against.
type Context struct {
	Fields   map[string]string
	Property string
	Options  map[string]string
}

// Renderer expands templates. The zero value is not usable; use New.
type Renderer struct {
	now func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock overrides the time source used for {{date}}.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the renderer's current time.
func (r *Renderer) Now() time.Time {
	return r.now()
}

// Render expands tmpl against ctx. Unrecognised placeholders are left untouched.
func (r *Renderer) Render(tmpl string, ctx Context) string {
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		m := placeholderPattern.FindStringSubmatch(token)
		scope, name := m[1], m[2]

		switch {
		case scope == "date" && name == "":
			return r.now().UTC().Format(ISO8601)
		case scope == "fields" && name != "":
			return ctx.Fields[name]
		case scope == "options" && name == "slug":
			return ctx.Property
		case scope == "options" && name != "":
			return ctx.Options[name]
		}
		return token
	})
	return strings.ReplaceAll(out, `\n`, "\n")
}

// Body renders tmpl, or the default body when tmpl is empty.
func (r *Renderer) Body(tmpl string, ctx Context) string {
	if strings.TrimSpace(tmpl) == "" {
		return DefaultBody(ctx.Fields)
	}
	return r.Render(tmpl, ctx)
}

// DefaultBody lists every field except the email as a bulleted list, followed by Footer.
func DefaultBody(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == config.EmailField {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString("- **")
		b.WriteString(Label(name))
		b.WriteString(":** ")
		b.WriteString(fields[name])
		b.WriteString("\n")
	}
	if len(names) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(Footer)
	return b.String()
}

// Label turns a camel-case field name into words with the first letter
// capitalised: "eventDate" becomes "Event Date".
func Label(name string) string {
	var words []string
	for _, part := range camelcase.Split(name) {
		part = strings.Trim(part, "_- ")
		if part != "" {
			words = append(words, part)
		}
	}
	label := strings.Join(words, " ")
	if label == "" {
		return name
	}
	first, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(first)) + label[size:]
}
