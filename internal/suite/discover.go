package suite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover returns the files matching pattern below root, sorted
// lexicographically. The pattern is matched one path element at a time,
// and every directory on the way is listed, so a directory that cannot be
// read is an error instead of silently contributing nothing.
//
// A root that does not exist yields no files and no error. Names starting
// with a dot are only matched by a pattern element that starts with a dot.
// Directories are dropped from the final element; other entries, including
// dangling symlinks, are kept.
func Discover(root, pattern string) ([]string, error) {
	elems := splitPattern(pattern)
	if len(elems) == 0 {
		return nil, fmt.Errorf("discovering %s: empty pattern", root)
	}
	for _, elem := range elems {
		if _, err := filepath.Match(elem, ""); err != nil {
			return nil, fmt.Errorf("discovering %s: pattern %q: %w", root, pattern, err)
		}
	}

	dirs := []string{root}
	for i, elem := range elems {
		last := i == len(elems)-1
		var next []string
		for _, dir := range dirs {
			entries, err := os.ReadDir(dir)
			if err != nil {
				if dir == root && errors.Is(err, fs.ErrNotExist) {
					return []string{}, nil
				}
				return nil, fmt.Errorf("discovering %s: %w", root, err)
			}
			for _, entry := range entries {
				name := entry.Name()
				if strings.HasPrefix(name, ".") && !strings.HasPrefix(elem, ".") {
					continue
				}
				if ok, _ := filepath.Match(elem, name); !ok {
					continue
				}
				path := filepath.Join(dir, name)
				if isDir(entry, path) == last {
					continue
				}
				next = append(next, path)
			}
		}
		dirs = next
	}

	paths := dirs
	if paths == nil {
		paths = []string{}
	}
	sort.Strings(paths)
	return paths, nil
}

// splitPattern breaks a slash- or separator-delimited pattern into its
// non-empty path elements.
func splitPattern(pattern string) []string {
	var elems []string
	for _, elem := range strings.Split(filepath.ToSlash(pattern), "/") {
		if elem != "" && elem != "." {
			elems = append(elems, elem)
		}
	}
	return elems
}

// isDir reports whether entry is a directory, following symlinks. A
// dangling symlink is not a directory.
func isDir(entry fs.DirEntry, path string) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
