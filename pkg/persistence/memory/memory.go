package memory

import (
	"context"
	"sync"

	"github.com/vsc-eco/vsc-client-go/pkg/persistence"
)

// MemoryPersistence keeps nonces in process memory. It is the default backend;
// nonces are refetched from the network after a restart.
type MemoryPersistence struct {
	mu     sync.RWMutex
	nonces map[string]uint64
	closed bool
}

var _ persistence.INoncePersistence = (*MemoryPersistence)(nil)

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		nonces: make(map[string]uint64),
	}
}

func (m *MemoryPersistence) GetNonce(_ context.Context, keyGroup string) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, false, persistence.ErrClosed
	}
	nonce, found := m.nonces[keyGroup]
	return nonce, found, nil
}

func (m *MemoryPersistence) SetNonce(_ context.Context, keyGroup string, nonce uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}
	m.nonces[keyGroup] = nonce
	return nil
}

func (m *MemoryPersistence) IncrementNonce(_ context.Context, keyGroup string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, persistence.ErrClosed
	}
	nonce, found := m.nonces[keyGroup]
	if !found {
		return 0, persistence.ErrNonceNotFound
	}
	nonce++
	m.nonces[keyGroup] = nonce
	return nonce, nil
}

func (m *MemoryPersistence) DeleteNonce(_ context.Context, keyGroup string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}
	delete(m.nonces, keyGroup)
	return nil
}

func (m *MemoryPersistence) HealthCheck(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}
	return nil
}

func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.nonces = nil
	return nil
}
