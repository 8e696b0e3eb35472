package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	id := NewID("asrt")
	assert.True(t, strings.HasPrefix(id, "asrt_"))
	assert.LessOrEqual(t, len(id), 32)
	assert.NotContains(t, id, "-")

	assert.NotEqual(t, NewID("asrt"), NewID("asrt"))

	bare := NewID("")
	assert.NotContains(t, bare, "_")
}
