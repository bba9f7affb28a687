package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/XavierBriggs/Argus/pkg/contracts"
)

// FetcherRegistry manages the fetcher assigned to each odds source
type FetcherRegistry struct {
	fetchers map[string]contracts.SourceFetcher
	mu       sync.RWMutex
}

// NewFetcherRegistry creates a new fetcher registry
func NewFetcherRegistry() *FetcherRegistry {
	return &FetcherRegistry{
		fetchers: make(map[string]contracts.SourceFetcher),
	}
}

// Register assigns a fetcher to a source name
func (r *FetcherRegistry) Register(name string, fetcher contracts.SourceFetcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fetchers[name]; exists {
		return fmt.Errorf("source %s is already registered", name)
	}

	r.fetchers[name] = fetcher
	return nil
}

// Get retrieves the fetcher for a source name
func (r *FetcherRegistry) Get(name string) (contracts.SourceFetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fetcher, exists := r.fetchers[name]
	return fetcher, exists
}

// Names returns all registered source names in sorted order
func (r *FetcherRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered sources
func (r *FetcherRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.fetchers)
}
