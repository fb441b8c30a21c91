package flags

import "github.com/spf13/cobra"

const (
	// WorkspaceFlagName exposes the shared workspace directory flag name.
	WorkspaceFlagName = "dir"
	// WorkspaceFlagShorthand provides the shorthand for the workspace directory flag.
	WorkspaceFlagShorthand = "d"
	// WorkspaceFlagUsage describes the shared workspace directory flag purpose.
	WorkspaceFlagUsage = "Workspace directory containing the git repository and .rtfrrc"
	// DefaultWorkspaceDirectory is used when the workspace flag is omitted.
	DefaultWorkspaceDirectory = "."
)

// WorkspaceFlagValues stores the parsed workspace flag.
type WorkspaceFlagValues struct {
	Directory string
}

// BindWorkspaceFlag attaches the persistent workspace directory flag to the provided command.
// Binding twice returns the values bound first.
func BindWorkspaceFlag(command *cobra.Command, values *WorkspaceFlagValues) *WorkspaceFlagValues {
	if values == nil {
		values = &WorkspaceFlagValues{}
	}
	if command == nil {
		return values
	}

	persistentFlagSet := command.PersistentFlags()
	if persistentFlagSet.Lookup(WorkspaceFlagName) != nil {
		return values
	}
	persistentFlagSet.StringVarP(&values.Directory, WorkspaceFlagName, WorkspaceFlagShorthand, DefaultWorkspaceDirectory, WorkspaceFlagUsage)
	return values
}
