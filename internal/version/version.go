package version

import (
	"os"
	"strings"
)

var version = "dev"

// Resolve returns the build version, preferring the VERSION file written by
// the release pipeline.
func Resolve() string {
	bytes, err := os.ReadFile("VERSION")
	if err != nil {
		return version
	}
	if v := strings.TrimSpace(string(bytes)); v != "" {
		return v
	}
	return version
}
