package model

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a prefixed record identifier, e.g. "asrt_0d9f...".
// Hyphens are stripped and the random part capped at 26 hex chars so the
// result fits a VARCHAR(32) column with the prefix.
func NewID(prefix string) string {
	clean := strings.ReplaceAll(uuid.New().String(), "-", "")
	if prefix == "" {
		return clean
	}
	return prefix + "_" + clean[:min(26, len(clean))]
}
