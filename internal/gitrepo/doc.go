// Package gitrepo answers the history questions a README audit asks of git:
// which commits exist, who authored them, which paths they touched, what a
// file looked like at a revision and how far apart two commits are.
//
// HistoryOracle runs every query through the execshell git executor so tests
// can substitute canned output, and gitrepotest offers an in-memory DAG with
// the same method set for tests above this package.
package gitrepo
