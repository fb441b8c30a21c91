package audit

import (
	"math"

	"github.com/temirov/rtfr/internal/identity"
)

// ResolutionState classifies how current an identity's reading of a README is.
type ResolutionState string

// Resolution states reported by the resolver.
const (
	ResolutionStateNeverAcknowledged ResolutionState = "never-acknowledged"
	ResolutionStateStale             ResolutionState = "stale"
	ResolutionStateCurrent           ResolutionState = "current"
)

// StaleDistance stands in for an ancestry distance that could not be computed. It is always stale.
const StaleDistance = math.MaxInt32

// DedupGranularity selects which violation fields make two violations the same.
type DedupGranularity string

// Supported deduplication granularities.
const (
	// DedupGranularityReadme reports each (identity, README) pair once.
	DedupGranularityReadme DedupGranularity = "readme"
	// DedupGranularityFile reports each (identity, README, file) triple once.
	DedupGranularityFile DedupGranularity = "file"
	// DedupGranularityCommit reports every offending file of every commit.
	DedupGranularityCommit DedupGranularity = "commit"
)

// DedupGranularityChoices lists the accepted granularity names.
func DedupGranularityChoices() []string {
	return []string{string(DedupGranularityReadme), string(DedupGranularityFile), string(DedupGranularityCommit)}
}

// Resolution is the resolver's verdict for one (commit, identity, README).
type Resolution struct {
	Identity       identity.Identity
	ReadmePath     string
	ReadmeRevision string
	// Acknowledged is the acknowledgement closest to ReadmeRevision, empty when none resolved.
	Acknowledged         string
	AcknowledgedDistance int
	// LastEdit is the identity's own most recent non-merge commit touching the README.
	LastEdit         string
	LastEditDistance int
	State            ResolutionState
}

// Violation reports whether neither the acknowledgement nor the identity's own edit reaches ReadmeRevision.
func (resolution Resolution) Violation() bool {
	return resolution.AcknowledgedDistance > 0 && resolution.LastEditDistance > 0
}

// Violation is one unread-README event.
type Violation struct {
	Identity   identity.Identity
	ReadmePath string
	Commit     string
	File       string
}

// CommandOptions captures the parameters of one check run.
type CommandOptions struct {
	WorkspaceRoot      string
	Boundary           string
	HistoryLimit       int
	ReadmeHistoryLimit int
	Workers            int
	Dedup              DedupGranularity
	IdentityMatching   IdentityMatching
	ColorOutput        bool
}

// IdentityMatching names how author and reader identities are compared.
type IdentityMatching string

// Supported identity matching modes.
const (
	IdentityMatchingExact                IdentityMatching = "exact"
	IdentityMatchingEmailCaseInsensitive IdentityMatching = "email-case-insensitive"
)

// IdentityMatchingChoices lists the accepted identity matching names.
func IdentityMatchingChoices() []string {
	return []string{string(IdentityMatchingExact), string(IdentityMatchingEmailCaseInsensitive)}
}

// Canonicalizer returns the identity canonicalizer for the matching mode.
func (matching IdentityMatching) Canonicalizer() identity.Canonicalizer {
	if matching == IdentityMatchingEmailCaseInsensitive {
		return identity.CaseInsensitiveEmailCanonicalizer{}
	}
	return identity.ExactCanonicalizer{}
}
