// Package readme finds README files, extracts the glob patterns they declare
// and tracks how those declarations change while history is replayed.
package readme
