// Package acknowledgement stores which README revision each contributor has
// read, either in a workspace file or on a remote acknowledgement server.
//
// Stores are ancestry-monotonic: recording an older revision never replaces a
// newer one for the same contributor and README.
package acknowledgement
