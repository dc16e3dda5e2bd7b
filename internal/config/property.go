package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chrisreddington/gh-formbridge/internal/errors"
)

// Transform kinds. The hash transform is a trimmed, lower-cased MD5 digest.
const (
	TransformMD5  = "md5"
	TransformHash = "hash"
)

// Transform applies Kind to the submitted value of Field.
type Transform struct {
	Field string
	Kind  string
}

// Transforms keeps the declaration order of the "transforms" mapping.
type Transforms []Transform

// UnmarshalYAML reads a field -> kind mapping in document order.
func (t *Transforms) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: transforms must be a mapping of field to kind", node.Line)
	}
	out := make(Transforms, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: transform for %q must be a string", value.Line, key.Value)
		}
		out = append(out, Transform{Field: key.Value, Kind: strings.ToLower(value.Value)})
	}
	*t = out
	return nil
}

// IssuePolicy switches a property from pull requests to issues.
type IssuePolicy struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Title     string   `yaml:"title,omitempty" json:"title,omitempty"`
	Body      string   `yaml:"body,omitempty" json:"body,omitempty"`
	Labels    []string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Assignees []string `yaml:"assignees,omitempty" json:"assignees,omitempty"`
}

// PropertyConfig is the validation, transform and output policy for one property.
// Zero-valued attributes fall back to the built-in defaults.
type PropertyConfig struct {
	RequiredFields  []string     `yaml:"requiredFields,omitempty"`
	AllowedFields   []string     `yaml:"allowedFields,omitempty"` // empty means unrestricted
	Transforms      Transforms   `yaml:"transforms,omitempty"`
	Path            string       `yaml:"path,omitempty"`
	Filename        string       `yaml:"filename,omitempty"`
	Format          string       `yaml:"format,omitempty"`
	Title           string       `yaml:"title,omitempty"`
	PullRequestBody string       `yaml:"pullRequestBody,omitempty"`
	Labels          []string     `yaml:"labels,omitempty"`
	Assignees       []string     `yaml:"assignees,omitempty"`
	GitHubIssue     *IssuePolicy `yaml:"githubIssue,omitempty"`
}

// UsesIssue reports whether submissions become issues instead of pull requests.
func (p PropertyConfig) UsesIssue() bool {
	return p.GitHubIssue != nil && p.GitHubIssue.Enabled
}

// Document is the parsed configuration document, keyed by property name.
type Document map[string]PropertyConfig

// ParseDocument parses a YAML (or JSON) configuration document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.ConfigError("parse_property_config", "configuration document is not valid YAML", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Validate reports settings that will be ignored at submission time.
// Problems are advisory: the document is still usable.
func (d Document) Validate() error {
	collector := errors.NewErrorCollector("validate_property_config")
	for name, prop := range d {
		for _, tr := range prop.Transforms {
			if !IsSupportedTransform(tr.Kind) {
				collector.Add(fmt.Errorf("%s: unsupported transform %q for field %q", name, tr.Kind, tr.Field))
			}
		}
		switch strings.ToLower(prop.Format) {
		case "", FormatJSON, FormatYAML, "yml":
		default:
			collector.Add(fmt.Errorf("%s: unsupported format %q", name, prop.Format))
		}
	}
	return collector.Result()
}

// IsSupportedTransform reports whether kind names a known transform.
func IsSupportedTransform(kind string) bool {
	switch strings.ToLower(kind) {
	case TransformMD5, TransformHash:
		return true
	}
	return false
}

var builtinDefaults = map[string]PropertyConfig{
	"timeline": {
		RequiredFields: []string{"name", "email", "title", "description", "date"},
		Path:           "data/timeline/entries",
	},
}

// defaultTransforms keep the submitter's address out of committed records.
func defaultTransforms() Transforms {
	return Transforms{{Field: EmailField, Kind: TransformMD5}}
}

// Defaults returns the built-in policy for property.
func Defaults(property string) PropertyConfig {
	if def, ok := builtinDefaults[property]; ok {
		def.Format = FormatJSON
		def.Transforms = defaultTransforms()
		return def
	}
	return PropertyConfig{
		RequiredFields: []string{"name", EmailField},
		Transforms:     defaultTransforms(),
		Path:           "data/" + property + "/entries",
		Format:         FormatJSON,
	}
}

// ForProperty returns the effective policy for property: the document's entry
// (when doc is non-nil and has one) with missing attributes taken from Defaults.
// An explicitly empty transforms mapping disables the default transforms.
func ForProperty(doc Document, property string) PropertyConfig {
	def := Defaults(property)
	prop, ok := doc[property]
	if !ok {
		return def
	}

	if prop.RequiredFields == nil {
		prop.RequiredFields = def.RequiredFields
	}
	if prop.Transforms == nil {
		prop.Transforms = def.Transforms
	}
	if prop.Path == "" {
		prop.Path = def.Path
	}
	switch strings.ToLower(prop.Format) {
	case FormatYAML, "yml":
		prop.Format = FormatYAML
	default:
		prop.Format = FormatJSON
	}
	return prop
}
