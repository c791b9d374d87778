package relay_test

import (
	"context"
	"errors"
	"sync"

	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/ports"
)

type recordingTransport struct {
	mu     sync.Mutex
	frames []ports.Frame
	closed bool
	block  chan struct{}
}

func (t *recordingTransport) Send(_ context.Context, frame ports.Frame) error {
	if t.block != nil {
		<-t.block
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("closed")
	}
	t.frames = append(t.frames, frame)
	return nil
}

func (t *recordingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *recordingTransport) Frames() []ports.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ports.Frame(nil), t.frames...)
}

func (t *recordingTransport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type staticIdentities map[string]identity.Identity

func (s staticIdentities) Resolve(_ context.Context, token string) (identity.Identity, error) {
	who, ok := s[token]
	if !ok {
		return identity.Identity{}, ports.ErrAuthentication
	}
	return who, nil
}

func mustIdentity(userID string, role identity.Role) identity.Identity {
	who, err := identity.NewIdentity(userID, role)
	if err != nil {
		panic(err)
	}
	return who
}

func testIdentities() staticIdentities {
	return staticIdentities{
		"tok-agent":    mustIdentity("A1", identity.Delivery),
		"tok-customer": mustIdentity("C1", identity.Customer),
		"tok-vendor":   mustIdentity("V1", identity.Vendor),
		"tok-stranger": mustIdentity("C9", identity.Customer),
	}
}
