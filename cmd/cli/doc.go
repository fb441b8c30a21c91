// Package cli constructs the rtfr command-line interface, wiring the Cobra command hierarchy, the configuration
// loader and structured logging around the check, read, init, serve and watch commands.
package cli
