package utils

import (
	"fmt"
	"sort"
	"strings"
)

var sensitiveKeyParts = []string{"password", "token", "secret", "cookie", "session"}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// RedactFields renders key=value pairs for server-side logs, masking values
// whose key looks like a credential. Keys are sorted so log lines are stable.
func RedactFields(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))

	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))

	for _, key := range keys {
		value := fields[key]
		if isSensitiveKey(key) {
			value = "[REDACTED]"
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}

	return strings.Join(parts, " ")
}
