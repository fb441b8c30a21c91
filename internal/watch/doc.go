// Package watch implements `rtfr watch`: it follows file changes in the work tree and prints a hint whenever a
// changed file is governed by a README the configured git identity has not read at its latest revision.
package watch
