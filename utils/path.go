package utils

import (
	"path/filepath"
	"strings"
)

// IsPathWithin returns true if the given path is within any of the roots.
// Symlinks are resolved on both sides.
func IsPathWithin(path string, roots []string) bool {
	absPath, ok := resolve(path)
	if !ok {
		return false
	}
	for _, root := range roots {
		absRoot, ok := resolve(root)
		if !ok {
			continue
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// UniqueRoots cleans the start paths and drops exact duplicates, keeping the
// first occurrence.
func UniqueRoots(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		clean := filepath.Clean(p)
		key := clean
		if abs, err := filepath.Abs(clean); err == nil {
			key = abs
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		roots = append(roots, clean)
	}
	return roots
}

func resolve(path string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	return abs, true
}
