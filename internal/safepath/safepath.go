// Package safepath checks that computed output paths stay inside a root directory.
package safepath

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

// Within reports whether target resolves strictly inside root.
// Both paths are cleaned first; root itself does not count as inside.
func Within(root, target string) bool {
	if root == "" || target == "" {
		return false
	}
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// Check returns a containment error when target escapes root.
func Check(root, target string) error {
	if Within(root, target) {
		return nil
	}
	return errors.ContainmentError("output path escapes public root").
		WithContext("root", root).
		WithContext("output", target).
		Build()
}
