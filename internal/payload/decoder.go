// Package payload turns raw entry request bodies into submitted fields and options.
//
// Three encodings are understood: JSON and URL-encoded bodies carry "fields" and
// "options" sub-objects, and multipart bodies are read with a deliberately small
// line-oriented parser that handles one text value per part.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/chrisreddington/gh-formbridge/internal/errors"
	"github.com/chrisreddington/gh-formbridge/internal/types"
)

const (
	fieldsKey  = "fields"
	optionsKey = "options"
)

// Content types recognised by Decode.
const (
	ContentTypeJSON       = "application/json"
	ContentTypeForm       = "application/x-www-form-urlencoded"
	ContentTypeMultipart  = "multipart/form-data"
	contentDispositionHdr = "content-disposition"
)

var (
	// nestedKeyPattern matches keys of the form parent[child].
	nestedKeyPattern = regexp.MustCompile(`^([^\[\]]+)\[([^\[\]]+)\]$`)
	// partNamePattern extracts name="..." from a Content-Disposition line.
	partNamePattern = regexp.MustCompile(`(?i)\bname="([^"]*)"`)
)

// Decode parses body according to contentType. It never fails hard: when the
// body cannot be parsed the returned submission holds whatever could be read
// (possibly nothing) and the error says why, so callers can log it and carry on.
func Decode(body []byte, contentType string) (types.Submission, error) {
	switch mediaType(contentType, body) {
	case ContentTypeJSON:
		return decodeJSON(body)
	case ContentTypeMultipart:
		return decodeMultipart(body), nil
	default:
		return decodeForm(body)
	}
}

// mediaType resolves the media type from the header, sniffing the body when the
// header is missing or unparseable.
func mediaType(contentType string, body []byte) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case ContentTypeJSON, ContentTypeForm, ContentTypeMultipart:
				return mt
			}
			if strings.HasSuffix(mt, "+json") {
				return ContentTypeJSON
			}
		}
	}

	trimmed := bytes.TrimSpace(body)
	switch {
	case bytes.HasPrefix(trimmed, []byte("{")):
		return ContentTypeJSON
	case bytes.HasPrefix(trimmed, []byte("--")):
		return ContentTypeMultipart
	default:
		return ContentTypeForm
	}
}

func emptySubmission() types.Submission {
	return types.Submission{
		Fields:  map[string]string{},
		Options: map[string]string{},
	}
}

func decodeJSON(body []byte) (types.Submission, error) {
	result := emptySubmission()
	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return result, errors.DecodeError("decode_json", "request body is not a JSON object", err)
	}

	copyStringMap(result.Fields, raw[fieldsKey])
	copyStringMap(result.Options, raw[optionsKey])
	return result, nil
}

// copyStringMap copies the entries of src, when it is an object, into dst as strings.
func copyStringMap(dst map[string]string, src interface{}) {
	obj, ok := src.(map[string]interface{})
	if !ok {
		return
	}
	for key, value := range obj {
		if s, ok := stringify(value); ok {
			dst[key] = s
		}
	}
}

func stringify(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(encoded), true
	}
}

func decodeForm(body []byte) (types.Submission, error) {
	result := emptySubmission()

	// ParseQuery keeps every well-formed pair when it reports a bad one.
	values, parseErr := url.ParseQuery(string(body))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		assignNested(result, key, vals[0])
	}
	if parseErr != nil {
		return result, errors.DecodeError("decode_form", "request body has malformed URL-encoded pairs", parseErr)
	}
	return result, nil
}

// assignNested places value under fields or options when key is parent[child].
// Other keys are not part of a submission and are ignored.
func assignNested(s types.Submission, key, value string) {
	m := nestedKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return
	}
	switch m[1] {
	case fieldsKey:
		s.Fields[m[2]] = value
	case optionsKey:
		s.Options[m[2]] = value
	}
}

// decodeMultipart reads a multipart body without a MIME parser. The boundary is
// the body's first line; each part contributes its name="..." attribute as key
// and the first non-empty line after the header block as value. A malformed
// body yields an empty submission.
func decodeMultipart(body []byte) types.Submission {
	result := emptySubmission()

	lines := splitLines(string(body))
	if len(lines) == 0 {
		return result
	}
	boundary := strings.TrimSpace(lines[0])
	if !strings.HasPrefix(boundary, "--") || len(boundary) == 2 {
		return result
	}

	for _, part := range splitParts(lines[1:], boundary) {
		key, value, ok := parsePart(part)
		if !ok {
			continue
		}
		assignNested(result, key, value)
	}
	return result
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// splitParts groups lines between boundary delimiters. The closing delimiter
// (boundary followed by "--") ends the body.
func splitParts(lines []string, boundary string) [][]string {
	var parts [][]string
	var current []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == boundary || trimmed == boundary+"--" {
			if current != nil {
				parts = append(parts, current)
			}
			if trimmed == boundary+"--" {
				return parts
			}
			current = []string{}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		parts = append(parts, current)
	}
	return parts
}

func parsePart(lines []string) (string, string, bool) {
	header := -1
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), contentDispositionHdr) {
			header = i
			break
		}
	}
	if header < 0 {
		return "", "", false
	}

	m := partNamePattern.FindStringSubmatch(lines[header])
	if m == nil || m[1] == "" {
		return "", "", false
	}
	key := m[1]

	blank := -1
	for i := header + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			blank = i
			break
		}
	}

	if blank < 0 {
		if header+1 < len(lines) {
			if value := strings.TrimSpace(lines[header+1]); value != "" {
				return key, value, true
			}
		}
		return "", "", false
	}

	for i := blank + 1; i < len(lines); i++ {
		if value := strings.TrimSpace(lines[i]); value != "" {
			return key, value, true
		}
	}
	return "", "", false
}

// Describe summarises a decoded submission for debug logging without values.
func Describe(s types.Submission) string {
	return fmt.Sprintf("%d field(s), %d option(s)", len(s.Fields), len(s.Options))
}
