package contracts

import (
	"context"

	"github.com/XavierBriggs/Argus/pkg/models"
)

// RemoteNormalizer defines the interface to the semantic name-normalization service
// Absence of the service is a valid state: IsEnabled reports whether remote calls
// should be attempted at all
type RemoteNormalizer interface {
	// IsEnabled returns whether the remote service is configured
	IsEnabled() bool

	// Normalize asks the remote service to map a raw vendor string to a canonical name
	Normalize(ctx context.Context, raw string, hint string) (models.NormalizationResult, error)
}
