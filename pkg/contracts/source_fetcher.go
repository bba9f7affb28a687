package contracts

import (
	"context"

	"github.com/XavierBriggs/Argus/pkg/models"
)

// SourceFetcher defines the interface for fetching raw quotes from one upstream source
// This is the stable seam for plugging in per-source integrations
type SourceFetcher interface {
	// Fetch retrieves the current raw selections a source offers for a sport
	// Implementations own their retry policy; callers bound the call with ctx
	Fetch(ctx context.Context, source models.SourceConfig, sport string) ([]models.RawSelection, error)
}
