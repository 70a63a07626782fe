package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsc-eco/vsc-client-go/pkg/did"
	"github.com/vsc-eco/vsc-client-go/pkg/evmAccount"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence/memory"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
)

func TestSessionVariants(t *testing.T) {
	store := memory.NewMemoryPersistence()

	keyDID, err := did.NewKeyDIDFromSeed(make([]byte, 32))
	require.NoError(t, err)
	acct, err := evmAccount.NewPrivateKeyAccount("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)

	tests := []struct {
		name     string
		session  Session
		mode     types.LoginMode
		identity string
	}{
		{name: "hive", session: NewHiveSession("alice", nil), mode: types.LoginModeHive, identity: "alice"},
		{name: "offchain", session: NewOffchainSession(keyDID, store), mode: types.LoginModeOffchain, identity: keyDID.ID()},
		{name: "evm", session: NewEvmSession(acct, store), mode: types.LoginModeEvm, identity: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.mode, ModeOf(tt.session))
			assert.Equal(t, tt.identity, tt.session.Identity())
		})
	}

	assert.Equal(t, types.LoginModeUnset, ModeOf(nil))

	evm := NewEvmSession(acct, store)
	assert.Equal(t, "did:pkh:eip155:1:0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", evm.Nonce.KeyGroup())
	assert.Equal(t, keyDID.ID(), NewOffchainSession(keyDID, store).Nonce.KeyGroup())
}

func TestBroadcastSlot(t *testing.T) {
	s := NewHiveSession("alice", nil)
	require.NoError(t, s.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Acquire(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	acquired := make(chan struct{})
	go func() {
		_ = s.Acquire(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("slot acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	s.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("slot not handed over after release")
	}
	s.Release()
	s.Release()
}

func TestNonceTracker(t *testing.T) {
	ctx := context.Background()
	tracker := NewNonceTracker(memory.NewMemoryPersistence(), "did:key:z6Mk")

	calls := 0
	fetch := func(ctx context.Context, keyGroup string) (uint64, error) {
		calls++
		assert.Equal(t, "did:key:z6Mk", keyGroup)
		return 0, nil
	}

	nonce, fetched, err := tracker.Current(ctx, fetch)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, uint64(0), nonce)

	// Zero is cached, so no second fetch.
	nonce, fetched, err = tracker.Current(ctx, fetch)
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Equal(t, uint64(0), nonce)
	assert.Equal(t, 1, calls)

	next, err := tracker.Increment(ctx, nonce)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)

	require.NoError(t, tracker.Clear(ctx))
	_, found, err := tracker.Peek(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	// Increment after a clear restores used+1.
	next, err = tracker.Increment(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), next)
}

func TestNonceTracker_FetchError(t *testing.T) {
	tracker := NewNonceTracker(memory.NewMemoryPersistence(), "kg")
	boom := errors.New("boom")
	_, _, err := tracker.Current(context.Background(), func(context.Context, string) (uint64, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	_, found, err := tracker.Peek(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}
