package readme

import (
	"io/fs"
	"path/filepath"
	"sort"
)

// FilesystemDiscoverer locates README files in a workspace on disk.
type FilesystemDiscoverer struct {
	matcher GlobMatcher
}

// NewFilesystemDiscoverer constructs a README discoverer backed by filepath.WalkDir.
func NewFilesystemDiscoverer() *FilesystemDiscoverer {
	return &FilesystemDiscoverer{matcher: NewGlobMatcher()}
}

// IsReadme reports whether a workspace-relative path is selected by the README globs and not ignored.
func (discoverer *FilesystemDiscoverer) IsReadme(relativePath string, readmePatterns []string, ignorePatterns []string) bool {
	return discoverer.matcher.Match(relativePath, workspaceRootDirectoryConstant, readmePatterns, ignorePatterns)
}

// Discover walks root and returns the workspace-relative, slash-separated paths of README files.
// Ignored directories are not descended into and unreadable entries are skipped.
func (discoverer *FilesystemDiscoverer) Discover(root string, readmePatterns []string, ignorePatterns []string) ([]string, error) {
	var readmePaths []string

	walkError := filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return nil
		}
		relativePath, relativeError := filepath.Rel(root, path)
		if relativeError != nil || relativePath == workspaceRootDirectoryConstant {
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)

		if directoryEntry.IsDir() {
			if discoverer.matcher.Excluded(relativePath, ignorePatterns) {
				return fs.SkipDir
			}
			return nil
		}

		if discoverer.IsReadme(relativePath, readmePatterns, ignorePatterns) {
			readmePaths = append(readmePaths, relativePath)
		}
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	sort.Strings(readmePaths)
	return readmePaths, nil
}
