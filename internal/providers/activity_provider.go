package providers

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ActivityProvider is an external source of a user's activities.
type ActivityProvider interface {
	// Name returns the provider identifier used in activity ids and connections
	Name() string

	// FetchActivities returns the user's activities that happened at or after since
	FetchActivities(ctx context.Context, userID string, since time.Time) ([]FetchedActivity, error)
}

// FetchedActivity is one activity as reported by a provider.
type FetchedActivity struct {
	ExternalActivityID string
	Timestamp          time.Time
	DistanceMiles      float64
	DurationMin        float64
}

// ProviderError wraps a failure talking to a provider with a stable code.
type ProviderError struct {
	Code     string
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Code)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Registry resolves providers by name.
type Registry struct {
	providers map[string]ActivityProvider
}

func NewRegistry(providers ...ActivityProvider) *Registry {
	r := &Registry{providers: make(map[string]ActivityProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (ActivityProvider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
