package dispatch

import (
	"fmt"
	"sync"

	"transmit/internal/channel"
	"transmit/internal/types"
)

// Registry holds provider adapters in registration order.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	byID      map[string]Provider
}

// NewRegistry returns a registry holding providers.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{byID: make(map[string]Provider)}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p. Ids must be unique.
func (r *Registry) Register(p Provider) error {
	if p == nil || p.ID() == "" {
		return types.NewAppError(types.ErrCodeInvalidArgument, "provider must have an id", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID()]; exists {
		return types.NewAppError(types.ErrCodeInvalidArgument, fmt.Sprintf("provider %q already registered", p.ID()), nil)
	}
	r.providers = append(r.providers, p)
	r.byID[p.ID()] = p
	return nil
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// Select returns the first registered provider that supports ct and that
// the allow-list permits. It distinguishes "nobody carries this channel"
// from "carriers exist but none is allowed".
func (r *Registry) Select(ct types.ChannelType, allowed []string) (Provider, error) {
	set := channel.NewProviderSet(allowed...)

	r.mu.RLock()
	defer r.mu.RUnlock()

	supported := false
	for _, p := range r.providers {
		if !p.Supports(ct) {
			continue
		}
		supported = true
		if set.Allows(p.ID()) {
			return p, nil
		}
	}

	if supported {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeProviderNotAllowed,
			fmt.Sprintf("no allowed provider for %s", ct), nil,
			map[string]any{"channel": string(ct), "allowed": allowed})
	}
	return nil, types.NewAppErrorWithDetails(types.ErrCodeProviderNotFound,
		fmt.Sprintf("no provider supports %s", ct), nil,
		map[string]any{"channel": string(ct)})
}
