package utils

import "path/filepath"

// ResolveRelative joins path to baseDir unless it is already absolute.
func ResolveRelative(path string, baseDir string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
