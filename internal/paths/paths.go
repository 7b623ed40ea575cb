// Package paths handles the two kinds of paths the manager deals with: logical group paths
// ("Physics/Collisions") that key the test tree, and filesystem paths of source files that
// are mapped onto those group paths relative to the project roots.
package paths

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Separator separates the segments of a group path.
const Separator = "/"

// Clean normalizes a group path: backslashes become slashes, empty segments and "." are dropped,
// ".." removes the segment before it and leading or trailing separators are removed. A ".." at
// the root stays at the root. The root group is the empty string.
func Clean(p string) string {
	p = strings.ReplaceAll(p, `\`, Separator)
	parts := strings.Split(p, Separator)
	kept := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			if len(kept) > 0 {
				kept = kept[:len(kept)-1]
			}
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, Separator)
}

// Parent returns the parent group of p, or "" when p is top-level or the root.
func Parent(p string) string {
	p = Clean(p)
	if p == "" {
		return ""
	}
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

// Base returns the last segment of p.
func Base(p string) string {
	p = Clean(p)
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// IterateDirectories returns each successive parent of p, starting at the closest one and moving
// toward the root. The root itself ("") and p are not included. With reverse set, the order runs
// from the top-level directory down to the closest parent.
func IterateDirectories(p string, reverse bool) []string {
	var dirs []string
	for dir := Parent(p); dir != ""; dir = Parent(dir) {
		dirs = append(dirs, dir)
	}
	if reverse {
		for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
			dirs[i], dirs[j] = dirs[j], dirs[i]
		}
	}
	return dirs
}

// IsChild reports whether the filesystem path child is located in parent or any of its
// subdirectories. A path is not its own child. An empty parent stands for the filesystem root.
func IsChild(parent, child string) bool {
	if parent == child || (parent == "" && child == "") {
		return false
	}
	if parent == "" {
		return true
	}
	if child == "" {
		return false
	}

	parentAbs, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	childAbs, err := filepath.Abs(child)
	if err != nil {
		return false
	}
	if filepath.VolumeName(parentAbs) != filepath.VolumeName(childAbs) {
		return false
	}

	for dir := filepath.Dir(childAbs); ; dir = filepath.Dir(dir) {
		if dir == parentAbs {
			return true
		}
		next := filepath.Dir(dir)
		if next == dir {
			return false
		}
	}
}

// InvalidPathError signals that a path lies outside every recognized project root.
type InvalidPathError struct {
	Path  string
	Roots []string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("path %s is not located in any project root (%s)", e.Path, strings.Join(e.Roots, ", "))
}

// Root is a named project directory. Files below Dir map to group paths starting with Name.
type Root struct {
	Name string
	Dir  string
}

// Resolver maps filesystem paths onto project-relative group paths.
type Resolver struct {
	roots []Root
}

// NewResolver creates a Resolver for the given roots. The first matching root wins.
func NewResolver(roots ...Root) *Resolver {
	return &Resolver{roots: roots}
}

// Relative returns p as a group path prefixed with the name of the root containing it.
// It returns an *InvalidPathError when no root contains p.
func (r *Resolver) Relative(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}

	for _, root := range r.roots {
		if !IsChild(root.Dir, abs) {
			continue
		}
		rootAbs, err := filepath.Abs(root.Dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(rootAbs, abs)
		if err != nil {
			continue
		}
		return Clean(path.Join(root.Name, filepath.ToSlash(rel))), nil
	}

	names := make([]string, 0, len(r.roots))
	for _, root := range r.roots {
		names = append(names, root.Dir)
	}
	return "", &InvalidPathError{Path: abs, Roots: names}
}
