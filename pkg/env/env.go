package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key or fallback when unset or blank.
// Used for process-level switches read before config.Load.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
