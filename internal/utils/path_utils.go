// Package utils holds small path helpers shared by internal/artifact
// and cmd/deadvalue — adapted from the teacher's own
// internal/utils/path_utils.go, which resolved module import paths;
// this analyzer has no import-statement concept of its own (it
// consumes already-resolved, flat compilation-unit artifacts), so
// only the path/name-derivation half of that file survives here.
package utils

import (
	"path/filepath"
	"strings"

	"github.com/cmtlang/deadvalue/internal/config"
)

// ExtractModuleName derives a compilation unit's module name from its
// artifact path: the base filename with config.ArtifactExt trimmed.
func ExtractModuleName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, config.ArtifactExt)
}

// GetModuleDir returns the directory context for a module path.
// If the path points to an artifact file, returns the file's directory.
// If the path points to a directory (no recognized extension), returns
// the path itself.
func GetModuleDir(path string) string {
	if strings.HasSuffix(path, config.ArtifactExt) {
		return filepath.Dir(path)
	}
	return path
}
