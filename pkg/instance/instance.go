// Package instance names the running process in logs.
package instance

import "github.com/digitos-team/masala-software/pkg/env"

// explicit override first, then the platform dyno name, then the container hostname
var envKeys = []string{"MASALA_INSTANCE_ID", "DYNO", "HOSTNAME"}

// ID returns the first non-empty instance identifier, or fallback.
func ID(fallback string) string {
	return env.First(fallback, envKeys...)
}
