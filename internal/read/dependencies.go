package read

import (
	"context"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/identity"
)

// HistoryOracle answers the repository questions the read command asks.
type HistoryOracle interface {
	acknowledgement.AncestryComparator
	acknowledgement.PathHistorian
	ConfiguredIdentity(executionContext context.Context) (identity.Identity, error)
}
