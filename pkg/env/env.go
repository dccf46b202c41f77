package env

import (
	"os"
	"strconv"
	"strings"
)

// Prefix namespaces every variable the service reads.
const Prefix = "PARTSTRACK_"

// Get returns the prefixed variable, then the bare one, then fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Bool reads a boolean variable through Get. Unparseable values yield fallback.
func Bool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(Get(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return parsed
}
