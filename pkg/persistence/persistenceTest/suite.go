// Package persistenceTest holds the behaviour every nonce backend must share.
package persistenceTest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence"
)

// RunNoncePersistenceSuite runs the shared backend tests. newBackend must
// return a fresh, open backend for every call.
func RunNoncePersistenceSuite(t *testing.T, newBackend func(t *testing.T) persistence.INoncePersistence) {
	ctx := context.Background()

	// Unique key groups keep shared backends (redis) isolated between runs.
	keyGroup := func(name string) string {
		return fmt.Sprintf("did:key:test-%s-%s", name, uuid.NewString())
	}

	t.Run("missing nonce is not found", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		_, found, err := p.GetNonce(ctx, keyGroup("missing"))
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("zero is a valid cached nonce", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		kg := keyGroup("zero")
		require.NoError(t, p.SetNonce(ctx, kg, 0))
		nonce, found, err := p.GetNonce(ctx, kg)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint64(0), nonce)
	})

	t.Run("increment", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		kg := keyGroup("incr")
		_, err := p.IncrementNonce(ctx, kg)
		assert.True(t, errors.Is(err, persistence.ErrNonceNotFound))

		require.NoError(t, p.SetNonce(ctx, kg, 41))
		next, err := p.IncrementNonce(ctx, kg)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), next)

		nonce, found, err := p.GetNonce(ctx, kg)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint64(42), nonce)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		kg := keyGroup("delete")
		require.NoError(t, p.SetNonce(ctx, kg, 7))
		require.NoError(t, p.DeleteNonce(ctx, kg))
		require.NoError(t, p.DeleteNonce(ctx, kg))

		_, found, err := p.GetNonce(ctx, kg)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		p := newBackend(t)
		defer func() { _ = p.Close() }()

		kg := keyGroup("concurrent")
		require.NoError(t, p.SetNonce(ctx, kg, 0))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := p.IncrementNonce(ctx, kg)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		nonce, _, err := p.GetNonce(ctx, kg)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), nonce)
	})

	t.Run("closed backend rejects calls", func(t *testing.T) {
		p := newBackend(t)
		require.NoError(t, p.HealthCheck(ctx))
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())

		_, _, err := p.GetNonce(ctx, keyGroup("closed"))
		assert.True(t, errors.Is(err, persistence.ErrClosed))
		assert.True(t, errors.Is(p.SetNonce(ctx, "x", 1), persistence.ErrClosed))
		assert.True(t, errors.Is(p.HealthCheck(ctx), persistence.ErrClosed))
	})
}
