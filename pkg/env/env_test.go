package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPrefersPrefixedVariable(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	assert.Equal(t, "console", Get("LOG_FORMAT", "json"))

	t.Setenv("PARTSTRACK_LOG_FORMAT", "json")
	assert.Equal(t, "json", Get("LOG_FORMAT", "text"))
}

func TestGetFallback(t *testing.T) {
	t.Setenv("PARTSTRACK_MISSING", " ")
	assert.Equal(t, "x", Get("MISSING", "x"))
}

func TestBool(t *testing.T) {
	t.Setenv("PARTSTRACK_LOG_COLOR", "false")
	assert.False(t, Bool("LOG_COLOR", true))

	t.Setenv("PARTSTRACK_LOG_COLOR", "maybe")
	assert.True(t, Bool("LOG_COLOR", true))
}
