package memory

import (
	"context"
	"fmt"
	"sync"

	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/ports"
)

// IdentityProvider resolves tokens registered with Issue.
type IdentityProvider struct {
	mu     sync.RWMutex
	tokens map[string]identity.Identity
}

func NewIdentityProvider() *IdentityProvider {
	return &IdentityProvider{tokens: make(map[string]identity.Identity)}
}

func (p *IdentityProvider) Issue(token string, who identity.Identity) error {
	if err := who.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[token] = who
	return nil
}

func (p *IdentityProvider) Resolve(_ context.Context, credentialToken string) (identity.Identity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	who, ok := p.tokens[credentialToken]
	if !ok {
		return identity.Identity{}, fmt.Errorf("%w: unknown token", ports.ErrAuthentication)
	}
	return who, nil
}
