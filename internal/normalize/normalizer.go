package normalize

import (
	"context"
	"log/slog"

	"github.com/XavierBriggs/Argus/internal/metrics"
	"github.com/XavierBriggs/Argus/pkg/contracts"
	"github.com/XavierBriggs/Argus/pkg/models"
)

// Normalizer maps raw vendor strings to canonical names. When a remote
// semantic service is configured its answer wins; any remote failure degrades
// to the deterministic local path. The branch is fixed once at construction
// from the remote's capability flag, not rediscovered per call.
type Normalizer struct {
	remote    contracts.RemoteNormalizer
	useRemote bool
	logger    *slog.Logger
}

// NewNormalizer creates a normalizer. remote may be nil for fallback-only
// operation; a nil logger falls back to slog.Default().
func NewNormalizer(remote contracts.RemoteNormalizer, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		remote:    remote,
		useRemote: remote != nil && remote.IsEnabled(),
		logger:    logger,
	}
}

// Normalize resolves raw into a canonical name with a confidence in [0,1].
// It never fails: remote errors and malformed replies fall back locally.
func (n *Normalizer) Normalize(ctx context.Context, raw, hint string) models.NormalizationResult {
	if n.useRemote {
		result, err := n.remote.Normalize(ctx, raw, hint)
		if err == nil && validRemoteResult(result) {
			metrics.NormalizationsTotal.WithLabelValues("remote").Inc()
			return result
		}
		if err != nil {
			n.logger.Warn("remote normalization failed, using fallback",
				"raw", raw, "error", err)
		} else {
			n.logger.Warn("remote normalization reply malformed, using fallback",
				"raw", raw, "name", result.Name, "confidence", result.Confidence)
		}
	}

	metrics.NormalizationsTotal.WithLabelValues("fallback").Inc()
	return fallbackNormalize(raw)
}

func validRemoteResult(r models.NormalizationResult) bool {
	return r.Name != "" && r.Confidence >= 0 && r.Confidence <= 1
}
