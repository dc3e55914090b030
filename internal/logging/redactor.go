package logging

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var keySegments = regexp.MustCompile(`[^a-z0-9]+`)

// redactor masks values whose key contains a sensitive word as a whole segment,
// so "api_token" is masked but "tokenizer" is not.
type redactor struct {
	sensitive map[string]bool
}

func newRedactor() *redactor {
	r := &redactor{sensitive: make(map[string]bool)}
	for _, w := range []string{"secret", "password", "token", "key", "auth", "credential", "authorization"} {
		r.sensitive[w] = true
	}
	return r
}

// redact returns a copy of the flattened key-value pairs with sensitive values masked.
func (r *redactor) redact(pairs []any) []any {
	out := make([]any, len(pairs))
	copy(out, pairs)
	for i := 0; i+1 < len(out); i += 2 {
		if key, ok := out[i].(string); ok && r.isSensitive(key) {
			out[i+1] = redacted
		}
	}
	return out
}

func (r *redactor) isSensitive(key string) bool {
	for _, part := range keySegments.Split(strings.ToLower(key), -1) {
		if r.sensitive[part] {
			return true
		}
	}
	return false
}
