package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// nameFolder performs Unicode case folding, which is stricter than a plain
// ToLower (e.g. it maps ẞ and ß to the same key).
var nameFolder = cases.Fold()

// FoldName maps a country name to its canonical lookup key. All storage
// uniqueness and reconciliation matching go through this single function.
func FoldName(name string) string {
	return nameFolder.String(strings.TrimSpace(name))
}
