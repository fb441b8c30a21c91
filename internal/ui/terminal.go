package ui

import (
	"os"

	"github.com/mattn/go-isatty"
)

const noColorEnvironmentVariableConstant = "NO_COLOR"

type fileDescriptor interface {
	Fd() uintptr
}

// IsTerminal reports whether stream is a file attached to a terminal.
func IsTerminal(stream any) bool {
	descriptor, hasDescriptor := stream.(fileDescriptor)
	if !hasDescriptor {
		return false
	}
	return isatty.IsTerminal(descriptor.Fd()) || isatty.IsCygwinTerminal(descriptor.Fd())
}

// ColorEnabled reports whether colour escapes should be written to stream.
func ColorEnabled(stream any) bool {
	if _, disabled := os.LookupEnv(noColorEnvironmentVariableConstant); disabled {
		return false
	}
	return IsTerminal(stream)
}
