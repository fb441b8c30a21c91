package pathutils

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	workspaceNotDirectoryTemplateConstant = "%s is not a directory"
	pathOutsideWorkspaceTemplateConstant  = "%s is outside workspace %s"
	parentDirectoryPrefixConstant         = ".."
	currentDirectoryConstant              = "."
)

// ErrPathOutsideWorkspace reports a target that does not live under the workspace root.
var ErrPathOutsideWorkspace = errors.New("path outside workspace")

// WorkspacePathResolver turns user-supplied directories into absolute workspace roots.
type WorkspacePathResolver struct {
	homeExpander *HomeExpander
}

// NewWorkspacePathResolver constructs a resolver; a nil expander uses the operating system home directory.
func NewWorkspacePathResolver(homeExpander *HomeExpander) *WorkspacePathResolver {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &WorkspacePathResolver{homeExpander: homeExpander}
}

// ResolveDirectory expands ~, makes the path absolute and verifies it names an existing directory.
func (resolver *WorkspacePathResolver) ResolveDirectory(candidatePath string) (string, error) {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		trimmedPath = currentDirectoryConstant
	}

	absolutePath, absoluteError := filepath.Abs(resolver.homeExpander.Expand(trimmedPath))
	if absoluteError != nil {
		return "", absoluteError
	}

	fileInfo, statError := os.Stat(absolutePath)
	if statError != nil {
		return "", statError
	}
	if !fileInfo.IsDir() {
		return "", fmt.Errorf(workspaceNotDirectoryTemplateConstant, absolutePath)
	}
	return absolutePath, nil
}

// RelativeSlashPath expresses target relative to root with forward slashes.
// Relative targets are interpreted against root.
func RelativeSlashPath(root string, target string) (string, error) {
	absoluteTarget := target
	if !filepath.IsAbs(absoluteTarget) {
		absoluteTarget = filepath.Join(root, target)
	}

	relativePath, relativeError := filepath.Rel(root, absoluteTarget)
	if relativeError != nil {
		return "", relativeError
	}

	slashPath := path.Clean(filepath.ToSlash(relativePath))
	if slashPath == parentDirectoryPrefixConstant || strings.HasPrefix(slashPath, parentDirectoryPrefixConstant+"/") {
		return "", fmt.Errorf(pathOutsideWorkspaceTemplateConstant+": %w", target, root, ErrPathOutsideWorkspace)
	}
	return slashPath, nil
}
