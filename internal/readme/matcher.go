package readme

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	workspaceRootDirectoryConstant = "."
	currentDirectoryPrefixConstant = "./"
	directorySuffixConstant        = "/"
)

// GlobMatcher decides whether a workspace file is governed by a README's patterns.
type GlobMatcher struct{}

// NewGlobMatcher constructs a GlobMatcher.
func NewGlobMatcher() GlobMatcher {
	return GlobMatcher{}
}

// Match reports whether filePath is selected by include and not rejected by exclude.
//
// Paths are workspace-relative with forward slashes. Include patterns are anchored at readmeDirectory unless they
// start with "/", which anchors them at the workspace root; include entries starting with "!" are negations.
// Exclude patterns are workspace ignore globs matched against filePath and each of its parent directories;
// exclude entries starting with "!" are ignored. A pattern matches a path in either its bare or trailing-slash form.
func (matcher GlobMatcher) Match(filePath string, readmeDirectory string, include []string, exclude []string) bool {
	normalizedFilePath := normalizeRelativePath(filePath)
	if len(normalizedFilePath) == 0 {
		return false
	}

	included := false
	for _, pattern := range include {
		if strings.HasPrefix(pattern, negationPrefixConstant) {
			continue
		}
		if matchesPath(anchorPattern(pattern, readmeDirectory), normalizedFilePath) {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, pattern := range include {
		if !strings.HasPrefix(pattern, negationPrefixConstant) {
			continue
		}
		negatedPattern := strings.TrimPrefix(pattern, negationPrefixConstant)
		if matchesPath(anchorPattern(negatedPattern, readmeDirectory), normalizedFilePath) {
			return false
		}
	}

	return !matcher.Excluded(normalizedFilePath, exclude)
}

// Excluded reports whether filePath or one of its parent directories matches a workspace ignore glob.
func (matcher GlobMatcher) Excluded(filePath string, exclude []string) bool {
	normalizedFilePath := normalizeRelativePath(filePath)
	for _, pattern := range exclude {
		if len(pattern) == 0 || strings.HasPrefix(pattern, negationPrefixConstant) {
			continue
		}
		anchoredPattern := anchorPattern(pattern, workspaceRootDirectoryConstant)
		for candidatePath := normalizedFilePath; candidatePath != workspaceRootDirectoryConstant && len(candidatePath) > 0; candidatePath = path.Dir(candidatePath) {
			if matchesPath(anchoredPattern, candidatePath) {
				return true
			}
		}
	}
	return false
}

func anchorPattern(pattern string, readmeDirectory string) string {
	if strings.HasPrefix(pattern, directorySuffixConstant) {
		return strings.TrimLeft(pattern, directorySuffixConstant)
	}
	directory := normalizeRelativePath(readmeDirectory)
	trimmedPattern := strings.TrimPrefix(pattern, currentDirectoryPrefixConstant)
	if len(directory) == 0 || directory == workspaceRootDirectoryConstant {
		return trimmedPattern
	}
	anchoredPattern := path.Join(directory, trimmedPattern)
	if strings.HasSuffix(trimmedPattern, directorySuffixConstant) {
		anchoredPattern += directorySuffixConstant
	}
	return anchoredPattern
}

func matchesPath(pattern string, filePath string) bool {
	if matched, matchError := doublestar.Match(pattern, filePath); matchError == nil && matched {
		return true
	}
	matched, matchError := doublestar.Match(pattern, filePath+directorySuffixConstant)
	return matchError == nil && matched
}

func normalizeRelativePath(filePath string) string {
	trimmedPath := strings.TrimSpace(separatorNormalizer.Replace(filePath))
	for strings.HasPrefix(trimmedPath, currentDirectoryPrefixConstant) {
		trimmedPath = strings.TrimPrefix(trimmedPath, currentDirectoryPrefixConstant)
	}
	trimmedPath = strings.TrimLeft(trimmedPath, directorySuffixConstant)
	if len(trimmedPath) == 0 {
		return ""
	}
	return path.Clean(trimmedPath)
}
