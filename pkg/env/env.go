// Package env reads process environment outside of the envconfig struct,
// for values owned by the hosting platform rather than by this service.
package env

import (
	"os"
	"strings"
)

// First returns the first non-blank value among keys, or fallback.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
