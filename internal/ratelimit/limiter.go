package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/XavierBriggs/Argus/pkg/models"
)

// windowSize is the trailing interval over which admissions are counted
const windowSize = 60 * time.Second

// Limiter enforces per-source sliding-window admission control. Each source
// owns an independent ordered window of admission timestamps; a request is
// admitted only while the trailing 60s window holds strictly fewer entries
// than the source's configured per-minute limit. This is a plain sliding
// window counter, not a token bucket: bursts are bounded by the hard ceiling.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]int
	windows map[string][]time.Time
	logger  *slog.Logger

	nowFunc func() time.Time // injectable clock for testing
}

// NewLimiter creates a limiter for the given source configurations.
// Sources absent from the list are always denied (fail closed).
func NewLimiter(sources []models.SourceConfig, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}

	limits := make(map[string]int, len(sources))
	for _, src := range sources {
		limits[src.Name] = src.RequestsPerMinute
	}

	return &Limiter{
		limits:  limits,
		windows: make(map[string][]time.Time, len(sources)),
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Admit reports whether a request for the named source may proceed now.
// On admission the current timestamp is recorded against the source's window,
// so the window length never exceeds the limit immediately after admission.
func (l *Limiter) Admit(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[source]
	if !ok {
		l.logger.Warn("admission check for unconfigured source", "source", source)
		return false
	}

	now := l.nowFunc()
	window := l.pruneLocked(source, now)
	if len(window) >= limit {
		return false
	}

	l.windows[source] = append(window, now)
	return true
}

// Usage returns the admitted-request count in the source's trailing window
// and the configured limit. Unknown sources report zero for both.
func (l *Limiter) Usage(source string) (used, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[source]
	if !ok {
		return 0, 0
	}
	return len(l.pruneLocked(source, l.nowFunc())), limit
}

// pruneLocked drops timestamps older than the window size and returns the
// surviving window. Caller must hold l.mu.
func (l *Limiter) pruneLocked(source string, now time.Time) []time.Time {
	window := l.windows[source]
	cutoff := now.Add(-windowSize)

	i := 0
	for i < len(window) && window[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		window = window[i:]
		l.windows[source] = window
	}
	return window
}
