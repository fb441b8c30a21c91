package acknowledgement

import (
	"context"

	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/identity"
)

// Store loads and records acknowledgements.
type Store interface {
	Load(executionContext context.Context) (Document, error)
	Record(executionContext context.Context, user identity.Identity, readmePath string, commit string) (RecordOutcome, error)
}

// RecordOutcome describes the effect of recording an acknowledgement.
type RecordOutcome struct {
	// Recorded is false when an equal or newer acknowledgement was already stored.
	Recorded bool
	// Previous is the commit the stored acknowledgement pointed at before the call, when known.
	Previous string
	// Superseded lists remote entries deleted because a newer one now exists.
	Superseded []FileRecord
}

// AncestryComparator measures how far one revision is ahead of another.
type AncestryComparator interface {
	AncestryDistance(executionContext context.Context, from string, to string) (int, error)
}

// PathHistorian lists the commits that touched a path.
type PathHistorian interface {
	PathHistory(executionContext context.Context, revision string, path string, limit int) ([]gitrepo.CommitSummary, error)
}

// isStrictAncestor reports whether candidate is an ancestor of existing and differs from it.
// Comparison failures report false so the candidate replaces the existing entry.
func isStrictAncestor(executionContext context.Context, comparator AncestryComparator, candidate string, existing string) bool {
	if candidate == existing {
		return false
	}
	distance, distanceError := comparator.AncestryDistance(executionContext, existing, candidate)
	return distanceError == nil && distance == 0
}
