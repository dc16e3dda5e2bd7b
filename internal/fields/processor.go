// Package fields validates submitted fields against a property's policy and
// applies its declared transforms.
package fields

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/chrisreddington/gh-formbridge/internal/common"
	"github.com/chrisreddington/gh-formbridge/internal/config"
	"github.com/chrisreddington/gh-formbridge/internal/errors"
)

// Processed is the outcome of field processing.
type Processed struct {
	// Fields holds the allowed fields with transforms applied.
	Fields map[string]string
	// Email is the submitted email value before any transform.
	Email string
}

// Digest returns the hex MD5 digest of value, trimmed and lower-cased. It is an
// opacity measure for personal data, not a security primitive.
func Digest(value string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(value))))
	return hex.EncodeToString(sum[:])
}

// MissingFields returns the required fields that are not submitted, in policy order.
func MissingFields(submitted map[string]string, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := submitted[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Process validates submitted against policy, drops fields outside the allowed
// set and applies transforms. It makes no remote calls.
func Process(submitted map[string]string, policy config.PropertyConfig, logger common.Logger) (Processed, error) {
	if logger == nil {
		logger = common.NopLogger{}
	}

	if missing := MissingFields(submitted, policy.RequiredFields); len(missing) > 0 {
		return Processed{}, errors.WrapWithOperation(
			errors.NewMissingFieldsError(missing),
			errors.LayerValidation, "check_required_fields", "submission is missing required fields")
	}

	allowed := allowedSet(policy)
	out := make(map[string]string, len(submitted))
	for name, value := range submitted {
		if allowed != nil && !allowed[name] {
			logger.Debug("Dropping field %q: not in allowed fields", name)
			continue
		}
		out[name] = value
	}

	for _, tr := range policy.Transforms {
		value, ok := out[tr.Field]
		if !ok {
			continue
		}
		if !config.IsSupportedTransform(tr.Kind) {
			logger.Debug("Skipping unsupported transform %q on field %q", tr.Kind, tr.Field)
			continue
		}
		out[tr.Field] = Digest(value)
	}

	return Processed{Fields: out, Email: submitted[config.EmailField]}, nil
}

// allowedSet returns nil when every field is allowed.
func allowedSet(policy config.PropertyConfig) map[string]bool {
	if len(policy.AllowedFields) == 0 {
		return nil
	}
	set := make(map[string]bool, len(policy.AllowedFields)+len(policy.RequiredFields))
	for _, name := range policy.AllowedFields {
		set[name] = true
	}
	for _, name := range policy.RequiredFields {
		set[name] = true
	}
	return set
}
