// Package upstream resolves named backend providers and issues the
// outbound chat-completion calls, reusing pooled HTTP clients.
package upstream

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/ccbridge/ccbridge/internal/config"
)

// ErrProviderNotFound means the requested provider name is not in the
// registry.
var ErrProviderNotFound = errors.New("provider not found")

// Registry is the static table of configured providers, populated once
// at startup and read-only afterwards.
type Registry struct {
	providers map[string]config.Provider
}

func NewRegistry(providers []config.Provider) *Registry {
	return &Registry{
		providers: lo.KeyBy(providers, func(p config.Provider) string {
			return p.Name
		}),
	}
}

func (r *Registry) Get(name string) (config.Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return config.Provider{}, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}

	return p, nil
}

// Names returns the registered provider names, for status output.
func (r *Registry) Names() []string {
	return lo.Keys(r.providers)
}
